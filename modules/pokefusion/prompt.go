package pokefusion

import "fmt"

const loaderMessage = "AI is working its magic..."

func pokemonNamePrompt(index int) string {
	return fmt.Sprintf("What is the name of the Pokémon with National Pokédex number %d? Respond with only the name of the Pokémon. Do not add any other text or punctuation.", index)
}

func fusionPrompt(name, style string) string {
	if style == StyleRealistic {
		return fmt.Sprintf("Integrate a photorealistic, hyper-realistic %s into this image as if it were a still from a high-budget, live-action movie. The Pokémon must have realistic textures (fur, scales, skin, etc.) and be perfectly blended with the scene's lighting, casting accurate shadows and receiving reflections from the environment. It must interact believably and directly with any people or key subjects in the photo. Avoid a '3D model' or 'toy-like' appearance. The final result should be seamless and indistinguishable from a real photograph with a live-action creature.", name)
	}
	return fmt.Sprintf("Add a %s to this image in a %s style. The Pokémon must blend seamlessly with the environment, matching the lighting, shadows, and overall artistic style of the image. It is crucial that the Pokémon interacts directly and naturally with any people or subjects in the photo (e.g., playing, battling, resting nearby). The Pokémon should not look like a sticker; it must be a fully integrated part of the scene.", name, style)
}
