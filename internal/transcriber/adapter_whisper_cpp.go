package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/leonardotrapani/sttbridge/internal/deps"
	"github.com/leonardotrapani/sttbridge/internal/models/whisper"
)

// whisper-cli prints these for chunks with no speech
var blankMarkers = []string{"[BLANK_AUDIO]", "[SILENCE]", "(silence)", "[ Silence ]"}

// WhisperCppEngine runs whisper-cli against a local ggml model.
type WhisperCppEngine struct {
	cliPath   string
	modelPath string
	language  string
	threads   int
	logger    *slog.Logger
}

// NewWhisperCppEngine loads config.Model from config.ModelsDir and locates
// whisper-cli. Both must exist.
func NewWhisperCppEngine(config Config, logger *slog.Logger) (*WhisperCppEngine, error) {
	modelPath, err := whisper.Load(config.ModelsDir, config.Model)
	if err != nil {
		return nil, err
	}

	cli := deps.CheckWhisperCli()
	if err := cli.Err(); err != nil {
		return nil, fmt.Errorf("install whisper.cpp first: %w", err)
	}

	return newWhisperCppEngine(cli.Path, modelPath, config.Language, config.Threads, logger), nil
}

func newWhisperCppEngine(cliPath, modelPath, lang string, threads int, logger *slog.Logger) *WhisperCppEngine {
	return &WhisperCppEngine{
		cliPath:   cliPath,
		modelPath: modelPath,
		language:  lang,
		threads:   threads,
		logger:    logger.With(slog.String("component", "whisper-cpp-engine")),
	}
}

func (e *WhisperCppEngine) Name() string {
	return "whisper-cpp"
}

func (e *WhisperCppEngine) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", ErrUnintelligible
	}

	tmp, err := os.CreateTemp("", "sttbridge-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpFile := tmp.Name()
	defer os.Remove(tmpFile)

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	lang := e.language
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", e.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", filepath.Clean(tmpFile),
	}
	if e.threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", e.threads))
	}

	cmd := exec.CommandContext(ctx, e.cliPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return "", NewServiceError(e.Name(), ctx.Err())
		}
		e.logger.Debug("whisper-cli failed",
			slog.Duration("duration", duration),
			slog.String("stderr", stderr.String()),
		)
		return "", NewServiceError(e.Name(), fmt.Errorf("whisper-cli failed: %w", err))
	}

	text := strings.TrimSpace(stdout.String())
	for _, marker := range blankMarkers {
		text = strings.TrimSpace(strings.ReplaceAll(text, marker, ""))
	}
	if text == "" {
		return "", ErrUnintelligible
	}

	e.logger.Debug("transcribed chunk",
		slog.Int("bytes", len(wav)),
		slog.Duration("duration", duration),
	)
	return text, nil
}
