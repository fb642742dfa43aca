package characterfuse

// Params - 변신할 캐릭터 이름
type Params struct {
	CharacterName string `json:"character_name"`
}
