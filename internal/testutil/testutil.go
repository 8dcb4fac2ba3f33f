package testutil

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/sttbridge/internal/config"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	c := config.DefaultConfig()
	c.Transcription.APIKey = "test-api-key"
	c.Worker.IdleSleep = 5 * time.Millisecond
	c.Worker.ErrorBackoff = 10 * time.Millisecond
	c.Worker.TranscribeTimeout = time.Second
	c.Transcription.Threads = 1
	return c
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Silence returns d of zeroed s16le mono 16 kHz samples.
func Silence(d time.Duration) []byte {
	return make([]byte, samples(d)*2)
}

// Tone returns d of a 440 Hz sine in s16le mono 16 kHz.
func Tone(d time.Duration) []byte {
	n := samples(d)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func samples(d time.Duration) int {
	return int(d.Seconds() * 16000)
}

// IsSilent reports whether a WAV container carries only zero samples.
func IsSilent(wav []byte) bool {
	if len(wav) <= 44 {
		return true
	}
	for _, b := range wav[44:] {
		if b != 0 {
			return false
		}
	}
	return true
}

// MockEngine implements transcriber.Engine for testing
type MockEngine struct {
	EngineName     string
	TranscribeFunc func(ctx context.Context, wav []byte) (string, error)

	mu    sync.Mutex
	calls [][]byte
}

func NewMockEngine(fn func(ctx context.Context, wav []byte) (string, error)) *MockEngine {
	return &MockEngine{EngineName: "mock", TranscribeFunc: fn}
}

func (m *MockEngine) Name() string {
	return m.EngineName
}

func (m *MockEngine) Transcribe(ctx context.Context, wav []byte) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, wav)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wav)
	}
	return "mock transcription", nil
}

func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Inputs returns the WAV buffers passed to Transcribe, in call order.
func (m *MockEngine) Inputs() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.calls))
	copy(out, m.calls)
	return out
}

// LogRecord is one captured slog record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogCapture is a slog.Handler that keeps every record in memory.
type LogCapture struct {
	mu      *sync.Mutex
	records *[]LogRecord
	attrs   []slog.Attr
}

func NewLogCapture() *LogCapture {
	return &LogCapture{mu: &sync.Mutex{}, records: &[]LogRecord{}}
}

// Logger returns a debug-level logger writing into the capture.
func (h *LogCapture) Logger() *slog.Logger {
	return slog.New(h)
}

func (h *LogCapture) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *LogCapture) Handle(_ context.Context, r slog.Record) error {
	rec := LogRecord{Level: r.Level, Message: r.Message, Attrs: map[string]string{}}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.String()
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogCapture{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *LogCapture) WithGroup(string) slog.Handler {
	return h
}

func (h *LogCapture) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]LogRecord(nil), *h.records...)
}

// Find returns records whose message contains substr.
func (h *LogCapture) Find(substr string) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substr) {
			out = append(out, r)
		}
	}
	return out
}

// CountAt returns how many records were logged at level.
func (h *LogCapture) CountAt(level slog.Level) int {
	n := 0
	for _, r := range h.Records() {
		if r.Level == level {
			n++
		}
	}
	return n
}
