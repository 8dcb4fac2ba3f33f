package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine calls an OpenAI-compatible /audio/transcriptions endpoint.
type OpenAIEngine struct {
	name   string
	client *openai.Client
	config Config
	logger *slog.Logger
}

func NewOpenAIEngine(config Config, logger *slog.Logger) *OpenAIEngine {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return newOpenAICompatible("openai", clientConfig, config, logger)
}

// NewGroqEngine uses Groq's OpenAI-compatible Whisper API.
func NewGroqEngine(config Config, logger *slog.Logger) *OpenAIEngine {
	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = "https://api.groq.com/openai/v1"
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = "whisper-large-v3-turbo"
	}
	return newOpenAICompatible("groq", clientConfig, config, logger)
}

func newOpenAICompatible(name string, clientConfig openai.ClientConfig, config Config, logger *slog.Logger) *OpenAIEngine {
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	return &OpenAIEngine{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(slog.String("component", name+"-engine")),
	}
}

func (e *OpenAIEngine) Name() string {
	return e.name
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", ErrUnintelligible
	}

	req := openai.AudioRequest{
		Model:    e.config.Model,
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
		Language: e.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	}

	start := time.Now()
	resp, err := e.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		e.logger.Debug("API call failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return "", NewServiceError(e.name, fmt.Errorf("create transcription: %w", err))
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrUnintelligible
	}

	e.logger.Debug("transcribed chunk",
		slog.Int("bytes", len(wav)),
		slog.Duration("duration", duration),
	)
	return text, nil
}
