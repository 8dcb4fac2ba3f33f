package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Engine turns a WAV container into text.
//
// Implementations return ErrUnintelligible when the audio was processed but
// held no recognizable speech, and a *ServiceError when the backend could not
// be reached or refused the request.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Configuration for an engine
type Config struct {
	Engine    string
	APIKey    string
	BaseURL   string
	Language  string
	Model     string
	ModelsDir string // local engines only
	Threads   int    // local engines only
}

func DefaultConfig() Config {
	return Config{
		Engine: "openai",
		Model:  "whisper-1",
	}
}

// New creates the engine named by config.Engine.
func New(config Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch config.Engine {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIEngine(config, logger), nil

	case "groq":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("GROQ_API_KEY")
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		return NewGroqEngine(config, logger), nil

	case "whisper-cpp":
		return NewWhisperCppEngine(config, logger)

	default:
		return nil, fmt.Errorf("unsupported engine: %s", config.Engine)
	}
}
