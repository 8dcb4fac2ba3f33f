package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/leonardotrapani/sttbridge/internal/models/whisper"
)

// GetConfigPath returns $XDG_CONFIG_HOME/sttbridge/config.toml, creating the
// directory if needed.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "sttbridge")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// ResolvePath returns path, or the default location when path is empty.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetConfigPath()
}

// Load reads the config at path. A missing file is created with the
// commented defaults first. The result is not validated.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
		logger.Info("wrote default configuration", slog.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	config := DefaultConfig()
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		logger.Warn("unknown configuration keys ignored", slog.Any("keys", undecoded))
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", slog.String("path", path))
	return config, nil
}

// WriteDefault writes the commented default configuration to path.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigFile), 0600); err != nil {
		return fmt.Errorf("failed to write default config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.Transcription.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.Threads = threads
	}

	if c.Transcription.Engine == "whisper-cpp" && c.Transcription.ModelsDir == "" {
		dir, err := whisper.DefaultModelsDir()
		if err != nil {
			return fmt.Errorf("failed to resolve models directory: %w", err)
		}
		c.Transcription.ModelsDir = dir
	}
	return nil
}
