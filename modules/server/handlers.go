package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/hub"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/utils"
	"photo-fusion-server/modules/common/workflow"
	"photo-fusion-server/modules/pokefusion"
)

// 헬스 체크 엔드포인트
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{
		"status":  "healthy",
		"service": "photo-fusion-server",
	})
}

// 서버 메트릭 조회 엔드포인트
func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	generations, err := s.counter.Snapshot(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("[Server] stats unavailable")
	}

	writeOK(w, map[string]any{
		"server": map[string]any{
			"uptime":         time.Since(s.startTime).String(),
			"startTime":      s.startTime,
			"activeSessions": s.sessions.Count(),
		},
		"websocket":   s.hub.Metrics(),
		"generations": generations,
	})
}

// GET /api/modes
func (s *Server) listModes(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{
		"modes":  s.sessions.Modes(),
		"styles": pokefusion.Styles,
	})
}

// POST /api/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]any{
		"id":        sess.ID,
		"createdAt": sess.CreatedAt,
		"pages":     sess.Snapshots(),
	}})
}

// GET /api/sessions/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeOK(w, map[string]any{
		"id":        sess.ID,
		"createdAt": sess.CreatedAt,
		"pages":     sess.Snapshots(),
	})
}

// DELETE /api/sessions/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.sessions.Get(id); err != nil {
		writeError(w, err, nil)
		return
	}
	s.sessions.Delete(id)
	writeOK(w, map[string]string{"id": id})
}

func (s *Server) page(r *http.Request) (workflow.Page, error) {
	vars := mux.Vars(r)
	return s.sessions.Page(vars["id"], vars["mode"])
}

// GET /api/sessions/{id}/{mode}
func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeOK(w, p.Current())
}

// POST /api/sessions/{id}/{mode}/image
// multipart field "image", or JSON {"data": base64, "mime_type": "..."}
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	img, err := s.readImage(w, r)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("❌ [Server] image upload rejected")
		writeError(w, err, p.Current())
		return
	}

	snap, err := p.Upload(img)
	if err != nil {
		writeError(w, err, snap)
		return
	}
	log.Ctx(r.Context()).Info().Str("mime_type", img.MimeType).Int("bytes", len(img.Data)).Msg("📥 [Server] image uploaded")
	writeOK(w, snap)
}

func (s *Server) readImage(w http.ResponseWriter, r *http.Request) (model.UploadedImage, error) {
	limit := s.cfg.MaxUploadBytes
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
		if err := r.ParseMultipartForm(limit); err != nil {
			return model.UploadedImage{}, apperr.Decode("Failed to read the image file.", err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return model.UploadedImage{}, apperr.Validation("Please upload an image first.")
		}
		defer file.Close()
		return utils.ReadImage(file, header.Header.Get("Content-Type"), limit)
	}

	// base64 grows the payload by a third
	r.Body = http.MaxBytesReader(w, r.Body, limit*4/3+(64<<10))
	var payload model.ImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return model.UploadedImage{}, apperr.Decode("Invalid image payload.", err)
	}
	img, err := utils.DecodeBase64Image(payload.Data, payload.MimeType)
	if err != nil {
		return model.UploadedImage{}, err
	}
	if int64(len(img.Data)) > limit {
		return model.UploadedImage{}, apperr.Validation(fmt.Sprintf("Image exceeds the %d byte upload limit.", limit))
	}
	return img, nil
}

func readParams(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParamsBytes))
	if err != nil {
		return nil, apperr.Decode("Failed to read request body.", err)
	}
	return raw, nil
}

// PUT /api/sessions/{id}/{mode}/params
func (s *Server) setParams(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	raw, err := readParams(w, r)
	if err != nil {
		writeError(w, err, p.Current())
		return
	}
	snap, err := p.SetParams(raw)
	if err != nil {
		writeError(w, err, snap)
		return
	}
	writeOK(w, snap)
}

// generationContext detaches from the client connection: a started
// generation always runs to completion, bounded only by the timeout.
func (s *Server) generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.RequestTimeout)
}

// POST /api/sessions/{id}/{mode}/generate
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	raw, err := readParams(w, r)
	if err != nil {
		writeError(w, err, p.Current())
		return
	}

	ctx, cancel := s.generationContext(r)
	defer cancel()

	snap, err := p.Generate(ctx, raw)
	if err != nil {
		writeError(w, err, snap)
		return
	}
	writeOK(w, snap)
}

// POST /api/sessions/{id}/{mode}/reset
func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	snap, err := p.Reset()
	if err != nil {
		writeError(w, err, snap)
		return
	}
	writeOK(w, snap)
}

// POST /api/sessions/{id}/{mode}/retry
func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	snap, err := p.Retry()
	if err != nil {
		writeError(w, err, snap)
		return
	}
	writeOK(w, snap)
}

// GET /api/sessions/{id}/{mode}/download
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	filename, img, err := p.Download()
	if err != nil {
		writeError(w, err, nil)
		return
	}

	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("[Server] download interrupted")
	}
}

// POST /api/sessions/{id}/pokefusion/random
func (s *Server) randomPokemon(w http.ResponseWriter, r *http.Request) {
	p, err := s.sessions.Page(mux.Vars(r)["id"], pokefusion.Name)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	pp, ok := p.(*pokefusion.Page)
	if !ok {
		writeError(w, apperr.NotFound("Random Pokémon is not available."), nil)
		return
	}

	ctx, cancel := s.generationContext(r)
	defer cancel()

	snap, err := pp.RandomPokemon(ctx)
	if err != nil {
		writeError(w, err, snap)
		return
	}
	writeOK(w, snap)
}

// GET /ws?session={id}
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		writeError(w, apperr.Validation("Missing session parameter."), nil)
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	var initial []hub.Event
	for _, info := range s.sessions.Modes() {
		if p, ok := sess.Page(info.Name); ok {
			initial = append(initial, hub.Event{Type: hub.EventSnapshot, Mode: info.Name, Snapshot: p.Current()})
		}
	}
	_ = s.hub.ServeWS(w, r, id, initial...)
}
