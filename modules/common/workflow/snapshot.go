package workflow

import (
	"photo-fusion-server/modules/common/model"
)

// Snapshot - 페이지 상태의 JSON 표현
type Snapshot[P any] struct {
	Mode   string              `json:"mode"`
	State  State               `json:"state"`
	Params P                   `json:"params"`
	Image  *model.ImagePayload `json:"image,omitempty"`
	Result *ResultPayload      `json:"result,omitempty"`
	Error  *ErrorPayload       `json:"error,omitempty"`
	Status string              `json:"status,omitempty"`
	Busy   bool                `json:"busy"`
}

// ResultPayload - 생성 결과 (다운로드 파일명 포함)
type ResultPayload struct {
	Image    model.ImagePayload `json:"image"`
	Text     string             `json:"text,omitempty"`
	Subject  string             `json:"subject,omitempty"`
	Filename string             `json:"filename"`
}

// ErrorPayload carries the error kind and its user facing message.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (m *Machine[P]) snapshotLocked() Snapshot[P] {
	snap := Snapshot[P]{
		Mode:   m.mode.Name,
		State:  m.state,
		Params: m.params,
		Status: m.status,
		Busy:   m.state == StateProcessing || m.reserved,
	}
	if m.image != nil {
		payload := m.image.Payload()
		snap.Image = &payload
	}
	if m.result != nil {
		snap.Result = &ResultPayload{
			Image:    m.result.Image.Payload(),
			Text:     m.result.Text,
			Subject:  m.result.Subject,
			Filename: m.filenameLocked(),
		}
	}
	if m.err != nil {
		snap.Error = &ErrorPayload{Kind: m.err.Kind.String(), Message: m.err.Error()}
	}
	return snap
}
