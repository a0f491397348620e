package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetSilentMode(true)

	l := GetLogger("roku")
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"roku"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetSilentMode(true)

	l := GetLogger("test")
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String(), "info is the default level")

	SetLevel(LOG_DEBUG)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	SetLevel(LOG_ERROR)
	l.Warn().Msg("dropped")
	l.Error().Msg("kept")
	assert.False(t, strings.Contains(buf.String(), "dropped"))
	assert.Contains(t, buf.String(), "kept")

	SetLevel("bogus")
	buf.Reset()
	l.Info().Msg("back to info")
	assert.Contains(t, buf.String(), "back to info")
}
