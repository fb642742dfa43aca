package pokefusion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/gemini"
	"photo-fusion-server/modules/common/model"
)

type Service struct {
	client *gemini.Client
}

func NewService(client *gemini.Client) *Service {
	log.Info().Msg("✅ [PokeFusion] Service initialized")
	return &Service{client: client}
}

// GetRandomPokemonName - 도감 번호(1..1025)로 포켓몬 이름 조회
func (s *Service) GetRandomPokemonName(ctx context.Context, index int) (string, error) {
	if index < 1 || index > MaxPokedexNumber {
		return "", apperr.Validation(fmt.Sprintf("Pokédex number must be between 1 and %d, got %d.", MaxPokedexNumber, index))
	}

	name, err := s.client.GenerateText(ctx, pokemonNamePrompt(index), nil)
	if err != nil {
		log.Error().Err(err).Int("index", index).Msg("❌ [PokeFusion] Gemini API call for random Pokémon failed")
		return "", apperr.RemoteFailure("get random Pokémon name", err)
	}

	log.Info().Int("index", index).Str("name", name).Msg("[PokeFusion] random Pokémon resolved")
	return name, nil
}

// EditImageWithPokemon - 이미지에 포켓몬 합성 요청 (원본 응답 반환)
// The caller unwraps the response with UnwrapFusion.
func (s *Service) EditImageWithPokemon(ctx context.Context, img model.UploadedImage, name, style string) (*genai.GenerateContentResponse, error) {
	log.Info().Str("pokemon", name).Str("style", style).Msg("🎨 [PokeFusion] Generating fusion")

	resp, err := s.client.EditImage(ctx, img, fusionPrompt(name, style), nil)
	if err != nil {
		log.Error().Err(err).Str("pokemon", name).Msg("❌ [PokeFusion] Gemini API call failed")
		return nil, apperr.RemoteFailure("generate image", err)
	}
	return resp, nil
}

// UnwrapFusion extracts the composited image and the space-joined text parts.
func UnwrapFusion(resp *genai.GenerateContentResponse) (*model.Result, error) {
	out, err := gemini.ExtractImage(resp)
	if err != nil {
		if errors.Is(err, gemini.ErrNoImage) || errors.Is(err, gemini.ErrNoCandidates) {
			return nil, apperr.Remote("The AI did not return an image. Please try again.", err)
		}
		return nil, apperr.RemoteFailure("generate image", err)
	}
	return &model.Result{Image: out.Image, Text: out.Text}, nil
}

func (s *Service) run(ctx context.Context, req workflowRequest) (*model.Result, error) {
	name := strings.TrimSpace(req.Params.PokemonName)
	req.Progress(name)

	resp, err := s.EditImageWithPokemon(ctx, req.Image, name, req.Params.Style)
	if err != nil {
		return nil, err
	}

	result, err := UnwrapFusion(resp)
	if err != nil {
		return nil, err
	}
	result.Subject = name
	return result, nil
}
