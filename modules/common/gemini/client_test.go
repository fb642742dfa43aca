package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"photo-fusion-server/modules/common/model"
)

type fakeGenerator struct {
	fn    func(model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	calls int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	return f.fn(model, contents, cfg)
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, genai.NewPartFromText(t))
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts, Role: genai.RoleModel}}},
	}
}

func TestGenerateText(t *testing.T) {
	t.Run("uses text model and trims output", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(m string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "text-model", m)
			require.Len(t, contents, 1)
			assert.Equal(t, "hello", contents[0].Parts[0].Text)
			require.NotNil(t, cfg)
			assert.Equal(t, float32(1), *cfg.Temperature)
			return textResponse("  Keanu ", "Reeves\n"), nil
		}}
		c := New(gen, "text-model", "image-model")

		got, err := c.GenerateText(context.Background(), "hello", genai.Ptr[float32](1))

		require.NoError(t, err)
		assert.Equal(t, "Keanu Reeves", got)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("empty text is an error", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("   "), nil
		}}

		_, err := New(gen, "t", "i").GenerateText(context.Background(), "p", nil)

		assert.ErrorIs(t, err, ErrNoText)
	})

	t.Run("transport error is returned", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		gen := &fakeGenerator{fn: func(string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, cause
		}}

		_, err := New(gen, "t", "i").GenerateText(context.Background(), "p", nil)

		assert.ErrorIs(t, err, cause)
	})
}

func TestEditImage(t *testing.T) {
	img := model.UploadedImage{Data: []byte{1, 2, 3}, MimeType: "image/jpeg"}
	gen := &fakeGenerator{fn: func(m string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		assert.Equal(t, "image-model", m)
		require.Len(t, contents, 1)
		parts := contents[0].Parts
		require.Len(t, parts, 2)
		require.NotNil(t, parts[0].InlineData)
		assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
		assert.Equal(t, []byte{1, 2, 3}, parts[0].InlineData.Data)
		assert.Equal(t, "add a cat", parts[1].Text)
		assert.Equal(t, []string{"IMAGE", "TEXT"}, cfg.ResponseModalities)
		assert.Equal(t, float32(0.3), *cfg.Temperature)
		return textResponse("ok"), nil
	}}

	_, err := New(gen, "text-model", "image-model").EditImage(context.Background(), img, "add a cat", genai.Ptr[float32](0.3))

	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestExtractImage(t *testing.T) {
	t.Run("last image and joined text", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				genai.NewPartFromText("Here you go."),
				genai.NewPartFromBytes([]byte{9, 9}, "image/png"),
				genai.NewPartFromBytes([]byte{7}, "image/jpeg"),
				genai.NewPartFromText("Enjoy!"),
			}},
			FinishReason: genai.FinishReasonStop,
		}}}

		out, err := ExtractImage(resp)

		require.NoError(t, err)
		assert.Equal(t, []byte{7}, out.Image.Data)
		assert.Equal(t, "image/jpeg", out.Image.MimeType)
		assert.Equal(t, "Here you go. Enjoy!", out.Text)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := ExtractImage(&genai.GenerateContentResponse{})

		assert.ErrorIs(t, err, ErrNoCandidates)
	})

	t.Run("text only", func(t *testing.T) {
		_, err := ExtractImage(textResponse("I can't do that."))

		assert.ErrorIs(t, err, ErrNoImage)
	})

	t.Run("blocked response reports finish reason", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
		}}}

		_, err := ExtractImage(resp)

		assert.ErrorIs(t, err, ErrNoImage)
		assert.Contains(t, err.Error(), string(genai.FinishReasonSafety))
	})
}
