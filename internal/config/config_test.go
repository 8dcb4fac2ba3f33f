package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestConfig returns a valid configuration for testing
func createTestConfig() *Config {
	c := DefaultConfig()
	c.Transcription.APIKey = "test-api-key"
	return c
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "valid config", modify: func(c *Config) {}},
		{name: "empty address", modify: func(c *Config) { c.Server.Address = "" }, wantErr: "server.address"},
		{name: "zero read timeout", modify: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: "server.read_timeout"},
		{name: "zero write timeout", modify: func(c *Config) { c.Server.WriteTimeout = 0 }, wantErr: "server.write_timeout"},
		{name: "zero body limit", modify: func(c *Config) { c.Server.MaxBodyBytes = 0 }, wantErr: "server.max_body_bytes"},
		{name: "zero queue capacity", modify: func(c *Config) { c.Queue.Capacity = 0 }, wantErr: "queue.capacity"},
		{name: "zero idle sleep", modify: func(c *Config) { c.Worker.IdleSleep = 0 }, wantErr: "worker.idle_sleep"},
		{name: "negative backoff", modify: func(c *Config) { c.Worker.ErrorBackoff = -time.Second }, wantErr: "worker.error_backoff"},
		{name: "zero transcribe timeout", modify: func(c *Config) { c.Worker.TranscribeTimeout = 0 }, wantErr: "worker.transcribe_timeout"},
		{name: "wrong sample rate", modify: func(c *Config) { c.Audio.SampleRate = 44100 }, wantErr: "audio.sample_rate"},
		{name: "stereo", modify: func(c *Config) { c.Audio.Channels = 2 }, wantErr: "audio.channels"},
		{name: "wrong sample width", modify: func(c *Config) { c.Audio.SampleWidth = 4 }, wantErr: "audio.sample_width"},
		{name: "bad language", modify: func(c *Config) { c.Transcription.Language = "klingon" }, wantErr: "transcription.language"},
		{name: "language tag with region", modify: func(c *Config) { c.Transcription.Language = "en-US" }},
		{name: "negative threads", modify: func(c *Config) { c.Transcription.Threads = -1 }, wantErr: "transcription.threads"},
		{name: "missing openai key", modify: func(c *Config) { c.Transcription.APIKey = "" }, wantErr: "OpenAI API key required"},
		{
			name: "groq valid",
			modify: func(c *Config) {
				c.Transcription.Engine = "groq"
				c.Transcription.Model = "whisper-large-v3-turbo"
			},
		},
		{
			name: "groq bad model",
			modify: func(c *Config) {
				c.Transcription.Engine = "groq"
				c.Transcription.Model = "whisper-1"
			},
			wantErr: "invalid model for groq",
		},
		{
			name: "groq missing key",
			modify: func(c *Config) {
				c.Transcription.Engine = "groq"
				c.Transcription.APIKey = ""
			},
			wantErr: "Groq API key required",
		},
		{
			name: "whisper-cpp valid",
			modify: func(c *Config) {
				c.Transcription.Engine = "whisper-cpp"
				c.Transcription.Model = "base"
			},
		},
		{
			name: "whisper-cpp unknown model",
			modify: func(c *Config) {
				c.Transcription.Engine = "whisper-cpp"
				c.Transcription.Model = "whisper-1"
			},
			wantErr: "invalid model for whisper-cpp",
		},
		{
			name: "english-only model with other language",
			modify: func(c *Config) {
				c.Transcription.Engine = "whisper-cpp"
				c.Transcription.Model = "base.en"
				c.Transcription.Language = "de"
			},
			wantErr: "English-only",
		},
		{
			name: "english-only model with regional english",
			modify: func(c *Config) {
				c.Transcription.Engine = "whisper-cpp"
				c.Transcription.Model = "base.en"
				c.Transcription.Language = "en-US"
			},
		},
		{
			name: "english-only model with auto detection",
			modify: func(c *Config) {
				c.Transcription.Engine = "whisper-cpp"
				c.Transcription.Model = "base.en"
				c.Transcription.Language = ""
			},
		},
		{name: "empty engine", modify: func(c *Config) { c.Transcription.Engine = "" }, wantErr: "transcription.engine: empty"},
		{name: "unknown engine", modify: func(c *Config) { c.Transcription.Engine = "vosk" }, wantErr: "unsupported transcription.engine"},
		{name: "bad log level", modify: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "logging.level"},
		{name: "bad log format", modify: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "bad metrics path", modify: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: "metrics.path"},
		{
			name: "metrics path ignored when disabled",
			modify: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Path = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestConfig()
			tt.modify(c)

			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAPIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() with env key: %v", err)
	}
	if got := c.ToTranscriberConfig().APIKey; got != "env-key" {
		t.Errorf("APIKey = %q, want env-key", got)
	}
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	c, err := Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(string(data), "[transcription]") {
		t.Error("default config file missing [transcription] section")
	}

	want := DefaultConfig()
	if c.Server.Address != want.Server.Address {
		t.Errorf("Server.Address = %q, want %q", c.Server.Address, want.Server.Address)
	}
	if c.Queue.Capacity != want.Queue.Capacity {
		t.Errorf("Queue.Capacity = %d, want %d", c.Queue.Capacity, want.Queue.Capacity)
	}
	if c.Worker != want.Worker {
		t.Errorf("Worker = %+v, want %+v", c.Worker, want.Worker)
	}
	if c.Server.StartOnline {
		t.Error("StartOnline should default to false")
	}
	if c.Transcription.Threads < 1 {
		t.Errorf("Threads = %d, want auto value >= 1", c.Transcription.Threads)
	}
}

func TestLoad_ParsesValues(t *testing.T) {
	path := writeConfig(t, `
[server]
  address = "0.0.0.0:8080"
  start_online = true

[queue]
  capacity = 8

[worker]
  error_backoff = "250ms"
  transcribe_timeout = "5s"

[transcription]
  engine = "groq"
  model = "whisper-large-v3"
  language = "fr"
  api_key = "gsk-test"
  threads = 3

[logging]
  level = "debug"
  format = "json"
`)

	c, err := Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if c.Server.Address != "0.0.0.0:8080" || !c.Server.StartOnline {
		t.Errorf("Server = %+v", c.Server)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want default 10s", c.Server.ReadTimeout)
	}
	if c.Queue.Capacity != 8 {
		t.Errorf("Queue.Capacity = %d, want 8", c.Queue.Capacity)
	}
	if c.Worker.ErrorBackoff != 250*time.Millisecond || c.Worker.TranscribeTimeout != 5*time.Second {
		t.Errorf("Worker = %+v", c.Worker)
	}
	if c.Worker.IdleSleep != 50*time.Millisecond {
		t.Errorf("IdleSleep = %v, want default 50ms", c.Worker.IdleSleep)
	}
	if c.Transcription.Threads != 3 {
		t.Errorf("Threads = %d, want 3", c.Transcription.Threads)
	}
	if c.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", c.LogLevel())
	}

	tc := c.ToTranscriberConfig()
	if tc.Engine != "groq" || tc.APIKey != "gsk-test" || tc.Language != "fr" || tc.Model != "whisper-large-v3" {
		t.Errorf("ToTranscriberConfig() = %+v", tc)
	}
}

func TestLoad_WhisperCppDefaultsModelsDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
[transcription]
  engine = "whisper-cpp"
  model = "base"
`)

	c, err := Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Transcription.ModelsDir == "" {
		t.Error("ModelsDir should default for whisper-cpp")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "[server\naddress = ")

	if _, err := Load(path, discardLogger()); err == nil {
		t.Error("Load() expected parse error")
	}
}

func TestNewManager_RejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
[queue]
  capacity = 0
[transcription]
  api_key = "k"
`)

	if _, err := NewManager(path, discardLogger()); err == nil || !strings.Contains(err.Error(), "queue.capacity") {
		t.Errorf("NewManager() error = %v, want queue.capacity error", err)
	}
}

func TestManager_Reload(t *testing.T) {
	path := writeConfig(t, `
[transcription]
  api_key = "k"
`)

	m, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	var calls atomic.Int32
	m.OnChange(func(prev, next *Config) {
		calls.Add(1)
		if prev.Worker.ErrorBackoff == next.Worker.ErrorBackoff {
			t.Errorf("callback saw unchanged backoff %v", next.Worker.ErrorBackoff)
		}
	})

	if err := os.WriteFile(path, []byte("[worker]\nerror_backoff = \"2s\"\n[transcription]\napi_key = \"k\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !m.Reload() {
		t.Fatal("Reload() of valid config returned false")
	}
	if got := m.GetConfig().Worker.ErrorBackoff; got != 2*time.Second {
		t.Errorf("ErrorBackoff = %v, want 2s", got)
	}

	if err := os.WriteFile(path, []byte("[queue]\ncapacity = -1\n[transcription]\napi_key = \"k\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if m.Reload() {
		t.Error("Reload() of invalid config returned true")
	}
	if got := m.GetConfig().Queue.Capacity; got != 256 {
		t.Errorf("invalid reload replaced config: capacity = %d", got)
	}
	if calls.Load() != 1 {
		t.Errorf("OnChange calls = %d, want 1", calls.Load())
	}
}

func TestManager_WatchesFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
[transcription]
  api_key = "k"
`)

	m, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	changed := make(chan *Config, 1)
	m.OnChange(func(_, next *Config) {
		if next.Transcription.Language == "es" {
			select {
			case changed <- next:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error: %v", err)
	}
	defer m.Stop()

	if err := os.WriteFile(path, []byte("[transcription]\napi_key = \"k\"\nlanguage = \"es\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.Transcription.Language != "es" {
			t.Errorf("Language = %q, want es", c.Transcription.Language)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestGetConfig_ReturnsCopy(t *testing.T) {
	path := writeConfig(t, "[transcription]\napi_key = \"k\"\n")

	m, err := NewManager(path, discardLogger())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	c := m.GetConfig()
	c.Queue.Capacity = 1
	if m.GetConfig().Queue.Capacity == 1 {
		t.Error("GetConfig() exposed internal state")
	}
}
