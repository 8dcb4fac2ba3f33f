package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leonardotrapani/sttbridge/internal/audio"
	"github.com/leonardotrapani/sttbridge/internal/metrics"
	"github.com/leonardotrapani/sttbridge/internal/queue"
	"github.com/leonardotrapani/sttbridge/internal/transcriber"
)

type WorkerConfig struct {
	IdleSleep         time.Duration
	ErrorBackoff      time.Duration
	TranscribeTimeout time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		IdleSleep:         50 * time.Millisecond,
		ErrorBackoff:      time.Second,
		TranscribeTimeout: 30 * time.Second,
	}
}

// Worker is the single consumer of the chunk queue.
type Worker struct {
	controller *Controller
	queue      *queue.ChunkQueue
	decoder    audio.Decoder
	format     audio.Format
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu     sync.RWMutex
	engine transcriber.Engine
	config WorkerConfig
}

func NewWorker(c *Controller, engine transcriber.Engine, config WorkerConfig, m *metrics.Metrics, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		controller: c,
		queue:      c.queue,
		decoder:    audio.WAVDecoder{},
		format:     audio.WireFormat,
		metrics:    m,
		logger:     logger.With(slog.String("component", "worker")),
		engine:     engine,
		config:     config,
	}
}

// SetEngine swaps the engine used for the next chunk. The chunk in flight
// keeps the engine it started with.
func (w *Worker) SetEngine(engine transcriber.Engine) {
	w.mu.Lock()
	w.engine = engine
	w.mu.Unlock()
	w.logger.Info("engine replaced", slog.String("engine", engine.Name()))
}

func (w *Worker) SetConfig(config WorkerConfig) {
	w.mu.Lock()
	w.config = config
	w.mu.Unlock()
	w.logger.Info("worker timings updated",
		slog.Duration("error_backoff", config.ErrorBackoff),
		slog.Duration("transcribe_timeout", config.TranscribeTimeout))
}

// Update replaces the engine and the timing settings together.
func (w *Worker) Update(engine transcriber.Engine, config WorkerConfig) {
	w.mu.Lock()
	w.engine = engine
	w.config = config
	w.mu.Unlock()
	w.logger.Info("worker reconfigured", slog.String("engine", engine.Name()))
}

func (w *Worker) current() (transcriber.Engine, WorkerConfig) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.engine, w.config
}

// Run consumes chunks until ctx is done. No per-chunk failure stops it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")

	for {
		if err := w.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// cycle waits for one chunk and processes it. It returns an error only when
// ctx is done.
func (w *Worker) cycle(ctx context.Context) error {
	select {
	case <-w.controller.Online():
	case <-ctx.Done():
		return ctx.Err()
	}

	chunk, err := w.queue.Dequeue(ctx, w.controller.Offline())
	w.metrics.RecordWakeup()
	if err != nil {
		if errors.Is(err, queue.ErrStopped) {
			_, cfg := w.current()
			return sleep(ctx, cfg.IdleSleep)
		}
		return err
	}
	w.metrics.SetQueueLength(w.queue.Len())

	outcome := func() (outcome string) {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("worker cycle panicked", slog.Any("panic", r))
				outcome = metrics.OutcomeFailure
			}
		}()
		return w.process(ctx, chunk)
	}()
	w.metrics.RecordOutcome(outcome)

	if outcome == metrics.OutcomeFailure {
		_, cfg := w.current()
		return sleep(ctx, cfg.ErrorBackoff)
	}
	return nil
}

func (w *Worker) process(ctx context.Context, chunk queue.Chunk) string {
	if !w.controller.IsOnline() {
		w.logger.Debug("dropping chunk dequeued across offline transition", slog.Int("bytes", len(chunk)))
		return metrics.OutcomeDiscarded
	}

	wav, err := w.decoder.Decode(chunk, w.format)
	if err != nil {
		if audio.IsDecodeError(err) {
			w.logger.Warn("dropping undecodable chunk", slog.Int("bytes", len(chunk)), slog.Any("error", err))
			return metrics.OutcomeDecodeError
		}
		w.logger.Error("unexpected decode failure", slog.Int("bytes", len(chunk)), slog.Any("error", err))
		return metrics.OutcomeFailure
	}

	engine, cfg := w.current()
	if engine == nil {
		w.logger.Error("no transcription engine configured")
		return metrics.OutcomeFailure
	}

	tctx := ctx
	if cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, cfg.TranscribeTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := engine.Transcribe(tctx, wav)
	w.metrics.ObserveTranscription(time.Since(start).Seconds())

	switch {
	case err == nil:
		if !w.controller.Publish(text) {
			w.logger.Debug("result discarded, pipeline went offline")
			return metrics.OutcomeDiscarded
		}
		w.logger.Info("transcription published", slog.Int("chars", len(text)),
			slog.Duration("audio", audio.Duration(len(chunk), w.format)))
		return metrics.OutcomeSuccess
	case errors.Is(err, transcriber.ErrUnintelligible):
		w.logger.Debug("speech not recognized", slog.String("engine", engine.Name()))
		return metrics.OutcomeUnintelligible
	case transcriber.IsServiceError(err):
		w.logger.Error("transcription service error", slog.String("engine", engine.Name()), slog.Any("error", err))
		return metrics.OutcomeServiceError
	default:
		w.logger.Error("unexpected transcription failure", slog.Any("error", fmt.Errorf("engine %s: %w", engine.Name(), err)))
		return metrics.OutcomeFailure
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
