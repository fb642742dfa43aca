package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"photo-fusion-server/modules/common/apperr"
)

// Response - 모든 JSON 응답의 공통 형식
type Response struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Msg("[Server] failed to write response")
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// writeError maps err to a status through its apperr kind. data, usually the
// page snapshot, is sent alongside so clients can render the current state.
func writeError(w http.ResponseWriter, err error, data any) {
	e := apperr.From(err)
	writeJSON(w, apperr.HTTPStatus(e.Kind), Response{
		Success:      false,
		Data:         data,
		ErrorMessage: e.Error(),
		ErrorKind:    e.Kind.String(),
	})
}
