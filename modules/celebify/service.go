package celebify

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/gemini"
	"photo-fusion-server/modules/common/model"
)

// ErrNoCelebrityName is returned when the text model answers with nothing.
var ErrNoCelebrityName = errors.New("API did not return a celebrity name")

// longNameWords - 이보다 단어가 많으면 경고 로그를 남깁니다 (이름은 그대로 사용)
const longNameWords = 4

type Service struct {
	client *gemini.Client
}

func NewService(client *gemini.Client) *Service {
	log.Info().Msg("✅ [Celebify] Service initialized")
	return &Service{client: client}
}

// GenerateCelebrityName - 성별에 맞는 무작위 유명인 이름 생성
func (s *Service) GenerateCelebrityName(ctx context.Context, gender Gender) (string, error) {
	name, err := s.client.GenerateText(ctx, celebrityNamePrompt(gender), genai.Ptr[float32](1))
	if errors.Is(err, gemini.ErrNoText) {
		err = ErrNoCelebrityName
	}
	if err != nil {
		log.Error().Err(err).Str("gender", string(gender)).Msg("❌ [Celebify] Error generating celebrity name")
		return "", apperr.RemoteFailure("generate celebrity name", err)
	}

	if len(strings.Fields(name)) > longNameWords {
		log.Warn().Str("name", name).Msg("⚠️ [Celebify] Received a long name from API, using it anyway")
	}

	log.Info().Str("name", name).Msg("[Celebify] celebrity chosen")
	return name, nil
}

// AddCelebrityToImage - 원본 인물은 그대로 두고 유명인을 합성
func (s *Service) AddCelebrityToImage(ctx context.Context, img model.UploadedImage, name string) (*model.Result, error) {
	resp, err := s.client.EditImage(ctx, img, addCelebrityPrompt(name), nil)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("❌ [Celebify] Error calling Gemini API")
		return nil, apperr.RemoteFailure("generate image", err)
	}

	out, err := gemini.ExtractImage(resp)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("❌ [Celebify] No image in response")
		return nil, apperr.RemoteFailure("generate image", err)
	}

	return &model.Result{Image: out.Image, Text: out.Text, Subject: name}, nil
}

// run resolves a celebrity first, announces it, then composes the photo.
func (s *Service) run(ctx context.Context, req workflowRequest) (*model.Result, error) {
	name, err := s.GenerateCelebrityName(ctx, req.Params.Gender)
	if err != nil {
		return nil, err
	}
	req.Progress(name)

	return s.AddCelebrityToImage(ctx, req.Image, name)
}
