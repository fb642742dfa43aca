package pokefusion

const (
	StyleAnime      = "Anime / Cartoon"
	StyleRealistic  = "Realistic / Live-Action"
	StyleClaymation = "Claymation"
	StylePixelArt   = "Pixel Art"
	StyleWatercolor = "Watercolor"

	DefaultPokemon = "Pikachu"
	DefaultStyle   = StyleAnime

	// MaxPokedexNumber - National Pokédex 최대 번호
	MaxPokedexNumber = 1025
)

// Styles lists the supported artistic styles in display order.
var Styles = []string{StyleAnime, StyleRealistic, StyleClaymation, StylePixelArt, StyleWatercolor}

// ValidStyle reports whether style is one of Styles.
func ValidStyle(style string) bool {
	for _, s := range Styles {
		if s == style {
			return true
		}
	}
	return false
}

// Params - PokeFusion 입력 파라미터
type Params struct {
	PokemonName string `json:"pokemon_name"`
	Style       string `json:"style"`
}
