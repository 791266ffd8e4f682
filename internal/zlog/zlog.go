// Package zlog provides the engine's shared structured logger.
//
// Grounded on wippyai-wasm-runtime's linker/logger.go and engine/logger.go:
// a package-level *zap.Logger behind a sync.Once-guarded accessor,
// defaulting to a no-op logger so the engine costs nothing when the
// embedder never configures logging.
package zlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// L returns the engine's shared logger, initializing it to a no-op logger
// on first use if SetLogger was never called.
func L() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the engine's shared logger. Call before using any
// other package for the configuration to take effect.
func SetLogger(l *zap.Logger) {
	logger = l
}
