package config

import "time"

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      "127.0.0.1:5000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxBodyBytes: 8 << 20,
			StartOnline:  false,
		},
		Queue: QueueConfig{
			Capacity: 256,
		},
		Worker: WorkerConfig{
			IdleSleep:         50 * time.Millisecond,
			ErrorBackoff:      time.Second,
			TranscribeTimeout: 30 * time.Second,
		},
		Audio: AudioConfig{
			SampleRate:  16000,
			Channels:    1,
			SampleWidth: 2,
		},
		Transcription: TranscriptionConfig{
			Engine: "openai",
			Model:  "whisper-1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// defaultConfigFile is written when no config file exists yet.
const defaultConfigFile = `# sttbridge configuration
# Changes to [transcription] and [worker] are applied without a restart.

[server]
  address = "127.0.0.1:5000"
  read_timeout = "10s"
  write_timeout = "10s"
  max_body_bytes = 8388608   # request body limit for POST /audio
  start_online = false       # accept audio before the first POST /mode

[queue]
  capacity = 256             # pending chunks; POST /audio answers 503 when full

[worker]
  idle_sleep = "50ms"
  error_backoff = "1s"       # pause after an unexpected failure
  transcribe_timeout = "30s" # hard limit per chunk

# Wire format of POST /audio. Only s16le, 16000 Hz, mono is supported.
[audio]
  sample_rate = 16000
  channels = 1
  sample_width = 2

[transcription]
  engine = "openai"          # "openai", "groq" or "whisper-cpp"
  model = "whisper-1"        # whisper-cpp: a model id from 'sttbridge model list'
  language = ""              # empty for auto-detect, or ISO-639-1 like "en"
  api_key = ""               # or OPENAI_API_KEY / GROQ_API_KEY
  base_url = ""              # OpenAI-compatible endpoint override
  threads = 0                # whisper-cpp CPU threads, 0 = auto
  models_dir = ""            # whisper-cpp models, empty for the default location

[logging]
  level = "info"             # "debug", "info", "warn", "error"
  format = "text"            # "text" or "json"

[metrics]
  enabled = true
  path = "/metrics"
`
