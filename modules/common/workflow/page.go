package workflow

import (
	"bytes"
	"context"
	"encoding/json"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/model"
)

// Page is the type-erased view of a Machine used by the session store and
// the HTTP handlers. Snapshots are returned as `any` and marshal to JSON.
type Page interface {
	Info() model.ModeInfo
	Current() any
	Upload(img model.UploadedImage) (any, error)
	SetParams(raw json.RawMessage) (any, error)
	Generate(ctx context.Context, raw json.RawMessage) (any, error)
	Reset() (any, error)
	Retry() (any, error)
	Download() (string, model.UploadedImage, error)
}

// AsPage wraps a Machine as a Page. JSON params are merged over the current
// ones, so a partial body only changes the fields it names.
func AsPage[P any](m *Machine[P]) Page {
	return &page[P]{m: m}
}

type page[P any] struct {
	m *Machine[P]
}

func (p *page[P]) Info() model.ModeInfo { return p.m.Mode().Info() }

func (p *page[P]) Current() any { return p.m.Snapshot() }

func (p *page[P]) Upload(img model.UploadedImage) (any, error) {
	return p.m.Upload(img)
}

func (p *page[P]) SetParams(raw json.RawMessage) (any, error) {
	params, err := p.merge(raw)
	if err != nil {
		return p.m.Snapshot(), err
	}
	return p.m.SetParams(params)
}

func (p *page[P]) Generate(ctx context.Context, raw json.RawMessage) (any, error) {
	if isEmptyJSON(raw) {
		return p.m.Generate(ctx, nil)
	}
	params, err := p.merge(raw)
	if err != nil {
		return p.m.Snapshot(), err
	}
	return p.m.Generate(ctx, &params)
}

func (p *page[P]) Reset() (any, error) { return p.m.Reset() }

func (p *page[P]) Retry() (any, error) { return p.m.Retry() }

func (p *page[P]) Download() (string, model.UploadedImage, error) {
	return p.m.Download()
}

func (p *page[P]) merge(raw json.RawMessage) (P, error) {
	params := p.m.Params()
	if isEmptyJSON(raw) {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, apperr.Decode("Invalid parameters: "+err.Error(), err)
	}
	return params, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
