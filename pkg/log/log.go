// Package log provides the process-global structured logger.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger configuration.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Development enables console-friendly output.
	Development bool `yaml:"development"`
}

var (
	mu      sync.RWMutex
	_global = zap.NewNop()
)

// L returns the global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return _global
}

// Init builds the global logger from cfg. Call once at process start;
// the default is a no-op logger, which keeps library use (and tests)
// quiet.
func Init(cfg Config) error {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the global logger. Used by tests.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	_global = logger
	mu.Unlock()
}
