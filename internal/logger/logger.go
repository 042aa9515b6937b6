package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bikeman/pkg/logging"
)

// Logger is the structured logger handed to every component. The Ctx variants prepend the
// transaction, system and request fields carried by ctx.
type Logger interface {
	Info(args ...interface{})
	Warn(args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Sync() error

	DebugwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
}

type SugaredLogger struct {
	*zap.SugaredLogger
	serviceName string
}

// SetServiceName sets the service_name logged when ctx does not carry one.
func (l *SugaredLogger) SetServiceName(name string) {
	l.serviceName = name
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	return enc
}

// New builds a production logger. format is "json" (default) or "console"; an unknown
// level falls back to info.
func New(level, format string) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig = encoderConfig()
	if format == "console" {
		cfg.Encoding = "console"
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &SugaredLogger{SugaredLogger: base.Sugar()}, nil
}

// NewObserved returns a logger writing to an in-memory core, for asserting on log output.
func NewObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &SugaredLogger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func NopLogger() Logger {
	return &SugaredLogger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *SugaredLogger) DebugwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *SugaredLogger) InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Infow(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *SugaredLogger) WarnwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Warnw(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *SugaredLogger) ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Errorw(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *SugaredLogger) withContext(ctx context.Context, keysAndValues []interface{}) []interface{} {
	fields := logging.GetLogFields(ctx)
	if l.serviceName != "" && logging.GetServiceName(ctx) == "" {
		fields = append(fields, "service_name", l.serviceName)
	}
	return append(fields, keysAndValues...)
}
