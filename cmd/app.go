package cmd

import (
	"context"

	"photo-fusion-server/modules/celebify"
	"photo-fusion-server/modules/characterfuse"
	"photo-fusion-server/modules/common/config"
	"photo-fusion-server/modules/common/gemini"
	"photo-fusion-server/modules/common/session"
	"photo-fusion-server/modules/common/workflow"
	"photo-fusion-server/modules/pokefusion"
)

// services holds one adapter per mode around a single Gemini client.
type services struct {
	celebify      *celebify.Service
	characterFuse *characterfuse.Service
	pokeFusion    *pokefusion.Service
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	client, err := gemini.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &services{
		celebify:      celebify.NewService(client),
		characterFuse: characterfuse.NewService(client),
		pokeFusion:    pokefusion.NewService(client),
	}, nil
}

// register adds every mode to the session manager in catalog order.
func (s *services) register(m *session.Manager) {
	m.Register(celebify.Name, func(opts ...workflow.Option) workflow.Page {
		return celebify.NewPage(s.celebify, opts...)
	})
	m.Register(characterfuse.Name, func(opts ...workflow.Option) workflow.Page {
		return characterfuse.NewPage(s.characterFuse, opts...)
	})
	m.Register(pokefusion.Name, func(opts ...workflow.Option) workflow.Page {
		return pokefusion.NewPage(s.pokeFusion, opts...)
	})
}
