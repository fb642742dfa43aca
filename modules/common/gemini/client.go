package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"photo-fusion-server/modules/common/config"
	"photo-fusion-server/modules/common/model"
)

var (
	ErrNoCandidates = errors.New("API returned no candidates")
	ErrNoImage      = errors.New("API did not return an image")
	ErrNoText       = errors.New("API did not return any text")
)

// ContentGenerator is the slice of genai.Models the adapters depend on.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Output - 응답에서 추출한 이미지와 설명 텍스트
type Output struct {
	Image model.UploadedImage
	Text  string
}

// Client wraps a ContentGenerator with the text and image model names.
type Client struct {
	models     ContentGenerator
	textModel  string
	imageModel string
}

// NewClient - 설정으로 genai 클라이언트를 생성합니다.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Info().
		Str("text_model", cfg.GeminiTextModel).
		Str("image_model", cfg.GeminiImageModel).
		Msg("✅ [Gemini] client initialized")

	return New(genaiClient.Models, cfg.GeminiTextModel, cfg.GeminiImageModel), nil
}

// New builds a Client around any ContentGenerator.
func New(models ContentGenerator, textModel, imageModel string) *Client {
	return &Client{
		models:     models,
		textModel:  textModel,
		imageModel: imageModel,
	}
}

// GenerateText sends a text-only prompt to the text model and returns the
// trimmed concatenation of the text parts.
func (c *Client) GenerateText(ctx context.Context, prompt string, temperature *float32) (string, error) {
	var cfg *genai.GenerateContentConfig
	if temperature != nil {
		cfg = &genai.GenerateContentConfig{Temperature: temperature}
	}

	resp, err := c.models.GenerateContent(ctx, c.textModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}

	text := ExtractText(resp)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// EditImage sends the image followed by the instruction to the image model,
// asking for both IMAGE and TEXT back. The raw response is returned.
func (c *Client) EditImage(ctx context.Context, img model.UploadedImage, prompt string, temperature *float32) (*genai.GenerateContentResponse, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MimeType),
		genai.NewPartFromText(prompt),
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		Temperature:        temperature,
	}

	log.Debug().
		Str("model", c.imageModel).
		Str("mime_type", img.MimeType).
		Int("bytes", len(img.Data)).
		Msg("[Gemini] sending image edit request")

	return c.models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
}

// ExtractImage - 첫 번째 후보에서 이미지 파트와 텍스트를 추출합니다.
// When several image parts are present the last one wins. Text parts are
// joined with a single space. A response without an image part is an error;
// an abnormal finish reason is reported when present.
func ExtractImage(resp *genai.GenerateContentResponse) (*Output, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	candidate := resp.Candidates[0]
	out := &Output{}
	var texts []string
	found := false

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				out.Image = model.UploadedImage{Data: part.InlineData.Data, MimeType: mimeType}
				found = true
				continue
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				texts = append(texts, t)
			}
		}
	}
	out.Text = strings.Join(texts, " ")

	if !found {
		if candidate.FinishReason != "" &&
			candidate.FinishReason != genai.FinishReasonUnspecified &&
			candidate.FinishReason != genai.FinishReasonStop {
			return nil, fmt.Errorf("%w (finish reason: %s)", ErrNoImage, candidate.FinishReason)
		}
		return nil, ErrNoImage
	}
	return out, nil
}

// ExtractText returns the trimmed text of the first candidate.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
