package pokefusion

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/workflow"
)

const Name = "pokefusion"

type workflowRequest = workflow.Request[Params]

// NewMode - PokeFusion 워크플로우 정의
func NewMode(svc *Service) workflow.Mode[Params] {
	return workflow.Mode[Params]{
		Name:           Name,
		Title:          "PokéFusion",
		Description:    "Add Pokémon to your world! Choose from 1000+ Pokémon and multiple artistic styles for magical photo adventures.",
		DownloadSuffix: Name,
		Defaults:       func() Params { return Params{PokemonName: DefaultPokemon, Style: DefaultStyle} },
		Validate:       validate,
		Run:            svc.run,
		StatusMessages: func(string, Params) []string { return []string{loaderMessage} },
	}
}

func validate(img *model.UploadedImage, p Params) error {
	if img == nil {
		return apperr.Validation("Please upload an image first.")
	}
	if strings.TrimSpace(p.PokemonName) == "" {
		return apperr.Validation("Please enter a Pokémon name.")
	}
	if !ValidStyle(p.Style) {
		return apperr.Validation("Please choose one of the supported styles: " + strings.Join(Styles, ", ") + ".")
	}
	return nil
}

// Page adds the random Pokémon action on top of the shared workflow.
type Page struct {
	workflow.Page

	machine     *workflow.Machine[Params]
	svc         *Service
	randomIndex func() int
}

// NewPage builds a fresh PokeFusion page.
func NewPage(svc *Service, opts ...workflow.Option) *Page {
	m := workflow.NewMachine(NewMode(svc), opts...)
	return &Page{
		Page:        workflow.AsPage(m),
		machine:     m,
		svc:         svc,
		randomIndex: func() int { return rand.IntN(MaxPokedexNumber) + 1 },
	}
}

// Machine exposes the typed state machine.
func (p *Page) Machine() *workflow.Machine[Params] {
	return p.machine
}

// RandomPokemon picks a Pokédex number, resolves its name and stores it as
// the selected Pokémon. Generation is refused while the lookup runs.
func (p *Page) RandomPokemon(ctx context.Context) (workflow.Snapshot[Params], error) {
	release, err := p.machine.Reserve()
	if err != nil {
		return p.machine.Snapshot(), err
	}

	index := p.randomIndex()
	name, err := p.svc.GetRandomPokemonName(ctx, index)
	if err != nil {
		return release(nil), err
	}

	log.Debug().Str("pokemon", name).Msg("[PokeFusion] random Pokémon selected")
	return release(func(params *Params) { params.PokemonName = name }), nil
}
