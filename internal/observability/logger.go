package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Logs go to stderr so the banner and
// result boxes on stdout stay readable.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

// TemporalLogger adapts zap to the orchestrator SDK's keyval logger so
// workflow, activity and client logs land in the same stream as ours.
type TemporalLogger struct {
	base *zap.SugaredLogger
}

func NewTemporalLogger(l *zap.Logger) *TemporalLogger {
	return &TemporalLogger{base: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (t *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	t.base.Debugw(msg, keyvals...)
}

func (t *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	t.base.Infow(msg, keyvals...)
}

func (t *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	t.base.Warnw(msg, keyvals...)
}

func (t *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	t.base.Errorw(msg, keyvals...)
}
