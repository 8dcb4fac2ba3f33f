package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/leonardotrapani/sttbridge/internal/language"
	"github.com/leonardotrapani/sttbridge/internal/transcriber"
)

// ResolveAPIKey returns transcription.api_key or the engine's environment
// variable.
func (c *Config) ResolveAPIKey() string {
	if c.Transcription.APIKey != "" {
		return c.Transcription.APIKey
	}
	switch c.Transcription.Engine {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	}
	return ""
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	lang, err := language.Normalize(c.Transcription.Language)
	if err != nil {
		lang = language.Auto
	}

	return transcriber.Config{
		Engine:    c.Transcription.Engine,
		APIKey:    c.ResolveAPIKey(),
		BaseURL:   c.Transcription.BaseURL,
		Language:  lang,
		Model:     c.Transcription.Model,
		ModelsDir: c.Transcription.ModelsDir,
		Threads:   c.Transcription.Threads,
	}
}

// LogLevel maps logging.level to a slog level. Unknown values fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
