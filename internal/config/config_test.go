package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SCARSIGNAL_DATA_DIR", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.NoError(t, cfg.RequireAPIKey())
	assert.Equal(t, "scarsignal", filepath.Base(cfg.DataDir))
	assert.Equal(t, "gemini-2.5-flash", cfg.TextModel)
	assert.NotEmpty(t, cfg.ImageModel)
	assert.NotEmpty(t, cfg.SpeechModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SCARSIGNAL_DATA_DIR", "/tmp/elsewhere")
	t.Setenv("SCARSIGNAL_TEXT_MODEL", "gemini-experimental")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere", cfg.DataDir)
	assert.Equal(t, "gemini-experimental", cfg.TextModel)
}

func TestRequireAPIKeyMissing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SCARSIGNAL_DATA_DIR", "/tmp/anywhere")

	cfg, err := Load()
	require.NoError(t, err, "loading without a key succeeds; only key-dependent commands fail")
	assert.Error(t, cfg.RequireAPIKey())
}
