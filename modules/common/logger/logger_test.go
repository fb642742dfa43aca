package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	assert.Equal(t, zerolog.DebugLevel, Setup("development").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, Setup("production").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, log.Logger.GetLevel())
}
