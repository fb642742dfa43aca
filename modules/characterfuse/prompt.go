package characterfuse

import "fmt"

const loaderMessage = "Fusing realities... please wait."

func transformPrompt(characterName string) string {
	return fmt.Sprintf("ABSOLUTE RULE: DO NOT CHANGE THE PERSON'S FACE OR THE BACKGROUND. The face—including all features, expression, and skin tone—and the entire background must be 100%% identical to the original image. Your ONLY task is to change the subject's clothing, hair, and any accessories to transform them into a realistic, live-action version of '%s'. The final image should look like a photorealistic costume change, nothing more.", characterName)
}
