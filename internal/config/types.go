package config

import "time"

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Queue         QueueConfig         `toml:"queue"`
	Worker        WorkerConfig        `toml:"worker"`
	Audio         AudioConfig         `toml:"audio"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Logging       LoggingConfig       `toml:"logging"`
	Metrics       MetricsConfig       `toml:"metrics"`
}

type ServerConfig struct {
	Address      string        `toml:"address"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	MaxBodyBytes int64         `toml:"max_body_bytes"`
	StartOnline  bool          `toml:"start_online"`
}

type QueueConfig struct {
	Capacity int `toml:"capacity"`
}

type WorkerConfig struct {
	IdleSleep         time.Duration `toml:"idle_sleep"`
	ErrorBackoff      time.Duration `toml:"error_backoff"`
	TranscribeTimeout time.Duration `toml:"transcribe_timeout"`
}

// AudioConfig restates the wire format. Only the fixed contract is accepted.
type AudioConfig struct {
	SampleRate  int `toml:"sample_rate"`
	Channels    int `toml:"channels"`
	SampleWidth int `toml:"sample_width"`
}

type TranscriptionConfig struct {
	Engine    string `toml:"engine"` // "openai", "groq", "whisper-cpp"
	Model     string `toml:"model"`
	Language  string `toml:"language"` // empty for auto-detect
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Threads   int    `toml:"threads"` // whisper-cpp only, 0 = auto
	ModelsDir string `toml:"models_dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "text", "json"
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}
