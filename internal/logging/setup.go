package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"brandgen-go/internal/config"
	"brandgen-go/internal/constants"
	log "github.com/sirupsen/logrus"
)

// ServiceName tags every entry so relay logs can be told apart in a shared sink.
const ServiceName = "brandgen-relay"

var (
	logMux        sync.Mutex
	logFileHandle *os.File
)

// serviceHook 为每条日志补充服务名和版本
type serviceHook struct{}

func (serviceHook) Levels() []log.Level { return log.AllLevels }

func (serviceHook) Fire(e *log.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = ServiceName
	}
	if _, ok := e.Data["version"]; !ok {
		e.Data["version"] = constants.Version
	}
	return nil
}

// formatterFor picks the formatter named by log_format. Without one, debug
// mode reads better as text and production sinks want json.
func formatterFor(sec config.SecurityConfig) log.Formatter {
	format := sec.LogFormat
	if format == "" {
		format = "json"
		if sec.Debug {
			format = "text"
		}
	}
	if format == "text" {
		return &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano}
	}
	return &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap:        log.FieldMap{log.FieldKeyMsg: "message"},
	}
}

func levelFor(sec config.SecurityConfig) (log.Level, error) {
	if sec.LogLevel != "" {
		lvl, err := log.ParseLevel(sec.LogLevel)
		if err != nil {
			return log.InfoLevel, fmt.Errorf("parse log level: %w", err)
		}
		return lvl, nil
	}
	if sec.Debug {
		return log.DebugLevel, nil
	}
	return log.InfoLevel, nil
}

// Setup configures the global logrus logger from the security section of cfg.
// Calling it again, as the config watcher does on reload, replaces the
// previous formatter, level, hooks and log file.
func Setup(cfg *config.Config) error {
	logMux.Lock()
	defer logMux.Unlock()

	var sec config.SecurityConfig
	if cfg != nil {
		sec = cfg.Security
	}

	level, err := levelFor(sec)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(formatterFor(sec))

	hooks := make(log.LevelHooks)
	hooks.Add(serviceHook{})
	log.StandardLogger().ReplaceHooks(hooks)

	if logFileHandle != nil {
		_ = logFileHandle.Close()
		logFileHandle = nil
	}
	if sec.LogFile == "" {
		log.SetOutput(os.Stdout)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sec.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(sec.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFileHandle = file
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}
