// Package log provides the process-wide zap logger.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu         sync.Mutex
	baseLogger *zap.Logger
	log        *zap.SugaredLogger
)

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	mu.Lock()
	baseLogger = zapLogger
	log = zapLogger.Sugar()
	mu.Unlock()
	return nil
}

// SetLogger swaps the logger, mostly for tests that want zaptest or a no-op.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	baseLogger = l
	log = l.Sugar()
	mu.Unlock()
}

// GetSugaredLogger returns the sugared logger, falling back to a no-op
// logger when Init was never called.
func GetSugaredLogger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		baseLogger = zap.NewNop()
		log = baseLogger.Sugar()
	}
	return log
}

func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
}

func Debugw(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Errorw(msg, keysAndValues...)
}
