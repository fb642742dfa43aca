package celebify

import "fmt"

const surpriseCelebrity = "a surprise celebrity"

func celebrityNamePrompt(gender Gender) string {
	return fmt.Sprintf("Name a random, globally famous %s celebrity from any field, such as acting, music, comedy, politics, or sports. Provide only the full name. Ensure the choice is varied and not always the most obvious person.", gender)
}

func addCelebrityPrompt(name string) string {
	return fmt.Sprintf("In this image, add the celebrity %s interacting with the person(s). It is crucial that you do not change the original person(s) in any way—their appearance, pose, and position must remain exactly the same. Make the addition look as realistic as possible. For example, have the celebrity putting an arm around a shoulder, laughing, or talking with the person. Avoid generating handshakes. The celebrity should be blended seamlessly into the photo's lighting and style.", name)
}

// loaderMessages rotate while a photo is being celebified.
func loaderMessages(celebrity string) []string {
	if celebrity == "" {
		celebrity = surpriseCelebrity
	}
	return []string{
		fmt.Sprintf("Finding %s...", celebrity),
		"Convincing them to pose...",
		"Adjusting the lighting...",
		"Celebifying your photo...",
		"Almost there!",
	}
}
