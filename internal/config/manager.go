package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called after a valid configuration replaced the previous one.
type ChangeFunc func(prev, next *Config)

type Manager struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	config   *Config
	onChange []ChangeFunc

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewManager loads and validates the config at path. An invalid initial
// configuration is an error.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "config"))

	config, err := Load(path, logger)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded", slog.String("path", path))
	return &Manager{
		path:   path,
		logger: logger,
		config: config,
	}, nil
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnChange registers fn to run after each successful reload.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// StartWatching reloads the config whenever the file is written. The
// directory is watched so editors that replace the file are handled.
func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.logger.Info("watching for changes", slog.String("path", m.path))
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	name := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				m.logger.Debug("file change detected", slog.String("op", event.Op.String()))
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error", slog.Any("error", err))

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. Invalid configurations are logged and the
// current one is kept.
func (m *Manager) Reload() bool {
	newConfig, err := Load(m.path, m.logger)
	if err != nil {
		m.logger.Error("failed to reload config", slog.Any("error", err))
		return false
	}
	if err := newConfig.Validate(); err != nil {
		m.logger.Error("invalid config after reload, keeping previous", slog.Any("error", err))
		return false
	}

	m.mu.Lock()
	old := m.config
	m.config = newConfig
	callbacks := append([]ChangeFunc(nil), m.onChange...)
	m.mu.Unlock()

	m.logger.Info("configuration reloaded")
	for _, fn := range callbacks {
		fn(old, newConfig)
	}
	return true
}
