package characterfuse

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

// transformTemperature keeps the face and background close to the source.
const transformTemperature float32 = 0.3

type Service struct {
	client *gemini.Client
}

func NewService(client *gemini.Client) *Service {
	log.Info().Msg("✅ [CharacterFuse] Service initialized")
	return &Service{client: client}
}

// TransformImage - 얼굴과 배경은 유지하고 의상/헤어만 캐릭터로 변경
func (s *Service) TransformImage(ctx context.Context, img model.UploadedImage, characterName string) (model.UploadedImage, error) {
	resp, err := s.client.EditImage(ctx, img, transformPrompt(characterName), genai.Ptr(transformTemperature))
	if err != nil {
		log.Error().Err(err).Str("character", characterName).Msg("❌ [CharacterFuse] Error transforming image")
		return model.UploadedImage{}, apperr.RemoteFailure("transform image", err)
	}

	out, err := gemini.ExtractImage(resp)
	if err != nil {
		if errors.Is(err, gemini.ErrNoImage) {
			err = fmt.Errorf("%w. It might be due to a safety policy violation", err)
		}
		log.Error().Err(err).Str("character", characterName).Msg("❌ [CharacterFuse] No image in response")
		return model.UploadedImage{}, apperr.RemoteFailure("transform image", err)
	}

	log.Info().Str("character", characterName).Int("bytes", len(out.Image.Data)).Msg("✅ [CharacterFuse] Transformation completed")
	return out.Image, nil
}

func (s *Service) run(ctx context.Context, req workflowRequest) (*model.Result, error) {
	name := strings.TrimSpace(req.Params.CharacterName)
	req.Progress(name)

	img, err := s.TransformImage(ctx, req.Image, name)
	if err != nil {
		return nil, err
	}
	return &model.Result{Image: img, Subject: name}, nil
}
