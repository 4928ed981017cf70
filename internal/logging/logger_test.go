package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricemove.log")
	logger := New(Options{Level: "debug", File: path, Quiet: true})
	assert.NotNil(t, logger)
	assert.NotPanics(t, func() {
		logger.Info().Str("ticker", "AAPL").Msg("hello")
		logger.Debug().Int("batch", 1).Msg("scored")
	})
	assert.DirExists(t, filepath.Dir(path))
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() { NewNop().Error().Msg("dropped") })
}
