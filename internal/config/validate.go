package config

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/sttbridge/internal/audio"
	"github.com/leonardotrapani/sttbridge/internal/language"
	"github.com/leonardotrapani/sttbridge/internal/models/whisper"
)

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("invalid server.address: empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid server.read_timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid server.write_timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server.max_body_bytes: %d", c.Server.MaxBodyBytes)
	}

	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("invalid queue.capacity: %d", c.Queue.Capacity)
	}

	if c.Worker.IdleSleep <= 0 {
		return fmt.Errorf("invalid worker.idle_sleep: %v", c.Worker.IdleSleep)
	}
	if c.Worker.ErrorBackoff < 0 {
		return fmt.Errorf("invalid worker.error_backoff: %v", c.Worker.ErrorBackoff)
	}
	if c.Worker.TranscribeTimeout <= 0 {
		return fmt.Errorf("invalid worker.transcribe_timeout: %v", c.Worker.TranscribeTimeout)
	}

	wire := audio.WireFormat
	if c.Audio.SampleRate != wire.SampleRate {
		return fmt.Errorf("invalid audio.sample_rate: %d (only %d is supported)", c.Audio.SampleRate, wire.SampleRate)
	}
	if c.Audio.Channels != wire.Channels {
		return fmt.Errorf("invalid audio.channels: %d (only %d is supported)", c.Audio.Channels, wire.Channels)
	}
	if c.Audio.SampleWidth != wire.SampleWidth {
		return fmt.Errorf("invalid audio.sample_width: %d (only %d is supported)", c.Audio.SampleWidth, wire.SampleWidth)
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics.path: %q (must start with /)", c.Metrics.Path)
	}

	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription

	if !language.IsValidCode(t.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", t.Language)
	}
	if t.Threads < 0 {
		return fmt.Errorf("invalid transcription.threads: %d", t.Threads)
	}

	switch t.Engine {
	case "openai":
		if c.ResolveAPIKey() == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (transcription.api_key) or environment variable (OPENAI_API_KEY)")
		}

	case "groq":
		if c.ResolveAPIKey() == "" {
			return fmt.Errorf("Groq API key required: not found in config (transcription.api_key) or environment variable (GROQ_API_KEY)")
		}
		validGroqModels := map[string]bool{"whisper-large-v3": true, "whisper-large-v3-turbo": true}
		if t.Model != "" && !validGroqModels[t.Model] {
			return fmt.Errorf("invalid model for groq: %s (must be whisper-large-v3 or whisper-large-v3-turbo)", t.Model)
		}

	case "whisper-cpp":
		if whisper.GetModel(t.Model) == nil {
			return fmt.Errorf("invalid model for whisper-cpp: %s (see 'sttbridge model list')", t.Model)
		}
		code, _ := language.Normalize(t.Language)
		if info := whisper.GetModel(t.Model); !info.Multilingual && code != language.Auto && code != "en" {
			return fmt.Errorf("model %s is English-only, set transcription.language to \"en\" or leave it empty", t.Model)
		}

	case "":
		return fmt.Errorf("invalid transcription.engine: empty")

	default:
		return fmt.Errorf("unsupported transcription.engine: %s (must be openai, groq or whisper-cpp)", t.Engine)
	}

	return nil
}
