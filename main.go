package main

import "photo-fusion-server/cmd"

func main() {
	cmd.Execute()
}
