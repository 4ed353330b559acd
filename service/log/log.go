package log

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

var (
	defaultLogger *zap.Logger
	defaultOnce   sync.Once
)

func initDefault() {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zapcore.InfoLevel
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		_ = level.Set(l)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level)
	defaultLogger = zap.New(core)
}

// Logger returns the logger attached to ctx, or the process-wide logger.
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	defaultOnce.Do(initDefault)
	return defaultLogger
}

// With returns a context whose logger carries the given key/value pairs.
func With(ctx context.Context, keysAndValues ...interface{}) context.Context {
	l := Logger(ctx).Sugar().With(keysAndValues...).Desugar()
	return context.WithValue(ctx, loggerKey{}, l)
}

// Set attaches the logger to the context.
func Set(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Fatal logs with the process-wide logger and exits.
func Fatal(msg string, fields ...zap.Field) {
	defaultOnce.Do(initDefault)
	defaultLogger.Fatal(msg, fields...)
}
