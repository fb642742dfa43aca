package celebify

// Gender - 추가할 유명인의 성별
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Params - Celebify 입력 파라미터
type Params struct {
	Gender Gender `json:"gender"`
}
