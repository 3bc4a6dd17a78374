package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Manager owns the live configuration and reloads it when the file changes.
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	lastMod    time.Time
	stopCh     chan struct{}
	stopOnce   sync.Once
	onChange   []func(old, new *Config)
}

// NewManager loads the configuration at path (searched when empty) and starts
// watching it. A missing file is not an error: defaults plus env are used.
func NewManager(path string) (*Manager, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{configPath: resolved, stopCh: make(chan struct{})}

	cfg, err := LoadFile(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		log.WithField("path", resolved).Warn("using default configuration (no config file found)")
		cfg = LoadFromEnv()
	}
	m.config = cfg
	if info, statErr := os.Stat(resolved); resolved != "" && statErr == nil {
		m.lastMod = info.ModTime()
		m.startWatcher()
	}
	return m, nil
}

// Current returns the configuration in effect. Callers must not mutate it.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Path returns the watched file, empty when running on defaults.
func (m *Manager) Path() string { return m.configPath }

// OnChange registers a callback invoked after every successful reload.
func (m *Manager) OnChange(fn func(old, new *Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Stop halts the watcher goroutine.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Reload re-reads the file unconditionally.
func (m *Manager) Reload() error {
	cfg, err := LoadFile(m.configPath)
	if err != nil {
		return err
	}
	if res := cfg.Validate(); !res.Valid {
		return res.Errors[0]
	}
	m.mu.Lock()
	old := m.config
	m.config = cfg
	if info, statErr := os.Stat(m.configPath); statErr == nil {
		m.lastMod = info.ModTime()
	}
	callbacks := append([]func(old, new *Config){}, m.onChange...)
	m.mu.Unlock()

	logConfigChanges(old, cfg)
	for _, fn := range callbacks {
		fn(old, cfg)
	}
	return nil
}

func logConfigChanges(old, new *Config) {
	if old == nil || new == nil {
		return
	}
	keyChanged := func(name string, a, b ModelConfig) {
		if a.APIKey != b.APIKey {
			log.WithFields(log.Fields{"field": name + ".api_key", "configured": b.HasKey()}).Info("config changed")
		}
		if a.Model != b.Model {
			log.WithFields(log.Fields{"field": name + ".model", "old": a.Model, "new": b.Model}).Info("config changed")
		}
	}
	keyChanged("deepseek", old.Models.DeepSeek, new.Models.DeepSeek)
	keyChanged("openai", old.Models.OpenAI, new.Models.OpenAI)
	keyChanged("image", old.Image, new.Image)
	if old.Security.Debug != new.Security.Debug {
		log.WithFields(log.Fields{"field": "debug", "old": old.Security.Debug, "new": new.Security.Debug}).Info("config changed")
	}
}
