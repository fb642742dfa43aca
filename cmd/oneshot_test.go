package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/config"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/stats"
	"photo-fusion-server/modules/common/workflow"
)

// 1x1 PNG header bytes, enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type nameParams struct {
	Name string `json:"name"`
}

func testCommand(t *testing.T, imagePath, output string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	c := &cobra.Command{Use: "test"}
	c.Flags().String("image", imagePath, "")
	c.Flags().String("output", output, "")
	c.SetContext(context.Background())

	out := &bytes.Buffer{}
	c.SetOut(out)
	return c, out
}

func withConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{RequestTimeout: 5 * time.Second, MaxUploadBytes: 1 << 20}
	t.Cleanup(func() { cfg = prev })
}

func nameMode(run func(context.Context, workflow.Request[nameParams]) (*model.Result, error)) workflow.Mode[nameParams] {
	return workflow.Mode[nameParams]{
		Name:           "test",
		DownloadSuffix: "test",
		Validate: func(img *model.UploadedImage, p nameParams) error {
			if p.Name == "" {
				return apperr.Validation("Please enter a name.")
			}
			return nil
		},
		Run: run,
	}
}

func TestRunOneShot(t *testing.T) {
	withConfig(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "me.png")
	require.NoError(t, os.WriteFile(src, pngBytes, 0o644))

	t.Run("writes the result", func(t *testing.T) {
		output := filepath.Join(dir, "out.png")
		c, out := testCommand(t, src, output)
		m := workflow.NewMachine(nameMode(func(_ context.Context, req workflow.Request[nameParams]) (*model.Result, error) {
			assert.Equal(t, "image/png", req.Image.MimeType)
			return &model.Result{
				Image:   model.UploadedImage{Data: []byte{7, 7}, MimeType: "image/png"},
				Text:    "a fine picture",
				Subject: req.Params.Name,
			}, nil
		}))

		err := runOneShot(c, m, &nameParams{Name: "Ash Ketchum"})

		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, []byte{7, 7}, data)
		assert.Equal(t, "a fine picture\n", out.String())
	})

	t.Run("remote failure is returned", func(t *testing.T) {
		c, _ := testCommand(t, src, filepath.Join(dir, "never.png"))
		m := workflow.NewMachine(nameMode(func(context.Context, workflow.Request[nameParams]) (*model.Result, error) {
			return nil, apperr.RemoteFailure("generate image", errors.New("quota exceeded"))
		}))

		err := runOneShot(c, m, &nameParams{Name: "Misty"})

		assert.Equal(t, apperr.KindRemote, apperr.KindOf(err))
		assert.NoFileExists(t, filepath.Join(dir, "never.png"))
	})

	t.Run("validation failure", func(t *testing.T) {
		c, _ := testCommand(t, src, "")
		m := workflow.NewMachine(nameMode(func(context.Context, workflow.Request[nameParams]) (*model.Result, error) {
			t.Fatal("adapter must not be called")
			return nil, nil
		}))

		err := runOneShot(c, m, &nameParams{})

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		c, _ := testCommand(t, filepath.Join(dir, "nope.jpg"), "")
		m := workflow.NewMachine(nameMode(nil))

		err := runOneShot(c, m, &nameParams{Name: "Brock"})

		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestNewCounter_WithoutRedis(t *testing.T) {
	counter, closeFn := newCounter(context.Background(), &config.Config{})
	defer closeFn()

	_, ok := counter.(*stats.MemoryCounter)
	assert.True(t, ok)
}
