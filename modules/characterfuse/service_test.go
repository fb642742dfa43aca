package characterfuse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/gemini"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/workflow"
)

type fakeGenerator struct {
	calls   int
	prompt  string
	temp    *float32
	respond func() (*genai.GenerateContentResponse, error)
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	parts := contents[0].Parts
	f.prompt = parts[len(parts)-1].Text
	if cfg != nil {
		f.temp = cfg.Temperature
	}
	return f.respond()
}

func withImage() (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      &genai.Content{Parts: []*genai.Part{genai.NewPartFromBytes([]byte{4, 2}, "image/png")}},
		FinishReason: genai.FinishReasonStop,
	}}}, nil
}

func withoutImage() (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText("I cannot help with that.")}},
	}}}, nil
}

var photo = model.UploadedImage{Data: []byte{0x89, 0x50}, MimeType: "image/png"}

func newService(gen *fakeGenerator) *Service {
	return NewService(gemini.New(gen, "text", "image"))
}

func TestTransformImage(t *testing.T) {
	t.Run("returns the transformed image", func(t *testing.T) {
		gen := &fakeGenerator{respond: withImage}

		img, err := newService(gen).TransformImage(context.Background(), photo, "Captain Jack Sparrow")

		require.NoError(t, err)
		assert.Equal(t, []byte{4, 2}, img.Data)
		assert.Contains(t, gen.prompt, "live-action version of 'Captain Jack Sparrow'")
		assert.Contains(t, gen.prompt, "100% identical")
		require.NotNil(t, gen.temp)
		assert.Equal(t, float32(0.3), *gen.temp)
	})

	t.Run("missing image mentions safety policy", func(t *testing.T) {
		gen := &fakeGenerator{respond: withoutImage}

		_, err := newService(gen).TransformImage(context.Background(), photo, "Batman")

		assert.Equal(t, apperr.KindRemote, apperr.KindOf(err))
		assert.ErrorIs(t, err, gemini.ErrNoImage)
		assert.Contains(t, err.Error(), "safety policy violation")
		assert.Contains(t, err.Error(), "Failed to transform image: ")
	})

	t.Run("remote failure is wrapped", func(t *testing.T) {
		gen := &fakeGenerator{respond: func() (*genai.GenerateContentResponse, error) {
			return nil, errors.New("503 service unavailable")
		}}

		_, err := newService(gen).TransformImage(context.Background(), photo, "Batman")

		assert.Equal(t, "Failed to transform image: 503 service unavailable", err.Error())
	})
}

func TestCharacterFusePage(t *testing.T) {
	t.Run("blank name is rejected before any request", func(t *testing.T) {
		gen := &fakeGenerator{respond: withImage}
		m := workflow.NewMachine(NewMode(newService(gen)))
		_, _ = m.Upload(photo)

		_, err := m.Generate(context.Background(), &Params{CharacterName: "   "})

		assert.Equal(t, "Please upload an image and enter a character name.", err.Error())
		assert.Zero(t, gen.calls)
	})

	t.Run("create another keeps the photo", func(t *testing.T) {
		gen := &fakeGenerator{respond: withImage}
		m := workflow.NewMachine(NewMode(newService(gen)))
		_, _ = m.Upload(photo)

		snap, err := m.Generate(context.Background(), &Params{CharacterName: "  Captain Jack Sparrow "})
		require.NoError(t, err)
		assert.Equal(t, "captain-jack-sparrow-characterfuse.png", snap.Result.Filename)

		snap, err = m.Reset()

		require.NoError(t, err)
		assert.Equal(t, workflow.StateIdle, snap.State)
		assert.NotNil(t, snap.Image)
		assert.Empty(t, snap.Params.CharacterName)
		assert.Nil(t, snap.Result)
		assert.Equal(t, 1, gen.calls)
	})
}
