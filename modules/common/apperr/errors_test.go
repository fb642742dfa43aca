package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestRemoteFailure(t *testing.T) {
	t.Run("cause message is surfaced", func(t *testing.T) {
		cause := errors.New("connection reset by peer")

		err := RemoteFailure("generate image", cause)

		assert.Equal(t, KindRemote, err.Kind)
		assert.Equal(t, "Failed to generate image: connection reset by peer", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("empty cause gets a generic message", func(t *testing.T) {
		err := RemoteFailure("transform image", emptyError{})

		assert.Equal(t, "An unknown error occurred while trying to transform image.", err.Error())
	})

	t.Run("nil cause gets a generic message", func(t *testing.T) {
		err := RemoteFailure("generate celebrity name", nil)

		assert.Contains(t, err.Error(), "unknown error")
	})
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Busy("generation already in progress"))

	assert.Equal(t, KindBusy, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestFrom(t *testing.T) {
	orig := Validation("Please upload an image first.")

	assert.Same(t, orig, From(fmt.Errorf("wrap: %w", orig)))
	assert.Nil(t, From(nil))

	converted := From(errors.New("boom"))
	assert.Equal(t, KindUnknown, converted.Kind)
	assert.Equal(t, "boom", converted.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindDecode, http.StatusBadRequest},
		{KindBusy, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindRemote, http.StatusBadGateway},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}
