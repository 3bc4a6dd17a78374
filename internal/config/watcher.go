package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	reloadDebounce = 100 * time.Millisecond
	pollInterval   = 5 * time.Second
)

func (m *Manager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		m.startPollingWatcher()
		return
	}
	// 监听目录以捕获原子写入（rename）
	if err := watcher.Add(filepath.Dir(m.configPath)); err != nil {
		log.WithError(err).WithField("path", m.configPath).Warn("failed to watch config dir, falling back to polling")
		_ = watcher.Close()
		m.startPollingWatcher()
		return
	}
	log.WithField("path", m.configPath).Info("file watcher started using fsnotify")

	target := filepath.Clean(m.configPath)
	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, m.checkAndReload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("file watcher error")
			case <-m.stopCh:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
}

func (m *Manager) startPollingWatcher() {
	ticker := time.NewTicker(pollInterval)
	log.WithField("interval", pollInterval.String()).Info("file watcher started using polling")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkAndReload()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Manager) checkAndReload() {
	info, err := os.Stat(m.configPath)
	if err != nil {
		return
	}
	m.mu.RLock()
	last := m.lastMod
	m.mu.RUnlock()
	if !info.ModTime().After(last) {
		return
	}
	if err := m.Reload(); err != nil {
		log.WithError(err).WithField("path", m.configPath).Warn("failed to reload config")
	}
}
