package logging_test

import (
	"testing"

	"dmchat/backend/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logging.ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, logging.ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, logging.ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, logging.ParseLevel("loud"))
}

func TestNew_RespectsLevel(t *testing.T) {
	log, err := logging.New("warn")
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))
}
