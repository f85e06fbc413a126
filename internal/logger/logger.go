package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Init is called
// so packages can log from tests without setting anything up.
var Log = zap.NewNop()

// Init builds the development console logger at the given level ("debug",
// "info", "warn", "error"). Unknown levels fall back to info.
func Init(level string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		// Fall back to something that always works
		l = zap.NewExample()
	}
	Log = l
}

// Set replaces the global logger, returning a function that restores the
// previous one. Tests use it with zaptest/observer.
func Set(l *zap.Logger) (restore func()) {
	prev := Log
	Log = l
	return func() { Log = prev }
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}
