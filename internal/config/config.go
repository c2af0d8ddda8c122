package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration, populated from the
// environment.
type Config struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	DataDir      string `env:"SCARSIGNAL_DATA_DIR"`
	TextModel    string `env:"SCARSIGNAL_TEXT_MODEL" envDefault:"gemini-2.5-flash"`
	ImageModel   string `env:"SCARSIGNAL_IMAGE_MODEL" envDefault:"imagen-3.0-generate-002"`
	SpeechModel  string `env:"SCARSIGNAL_SPEECH_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
}

// Load reads the configuration from environment variables. DataDir
// defaults to the XDG data directory when unset. The API key is only
// checked by RequireAPIKey, since some commands never talk to the
// generation service.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		cfg.DataDir = dir
	}
	return &cfg, nil
}

// RequireAPIKey fails when no Gemini key is configured.
func (c *Config) RequireAPIKey() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	return nil
}

// defaultDataDir returns the scarsignal-specific XDG data directory.
// Path: $XDG_DATA_HOME/scarsignal or ~/.local/share/scarsignal
func defaultDataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "scarsignal"), nil
}
