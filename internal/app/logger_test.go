package app

import (
	"bytes"
	"encoding/json"
	"mime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"})
	logger.Debug("hidden")
	logger.Info("login", "unit", "ULP A")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "login", entry["msg"])
	assert.Equal(t, "fomet", entry["service"])
	assert.Equal(t, "ULP A", entry["unit"])
}

func TestNewLoggerDevelopmentDebug(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{AppEnv: "development"}).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestMimeTypesRegistered(t *testing.T) {
	assert.NotEmpty(t, mime.TypeByExtension(".css"))
	assert.NotEmpty(t, mime.TypeByExtension(".js"))
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
