package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	atom       zap.AtomicLevel
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)

		cfg := zap.NewProductionConfig()
		cfg.Level = atom
		cfg.OutputPaths = []string{"stderr"}
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

		base, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			// Production config cannot fail with these settings; keep a
			// no-op logger rather than panicking during init.
			base = zap.NewNop()
		}
		logger = base.Sugar()
	})
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		atom.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		atom.SetLevel(zapcore.InfoLevel)
	case LevelError:
		atom.SetLevel(zapcore.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into the key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Errorw(msg, extended...)
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
