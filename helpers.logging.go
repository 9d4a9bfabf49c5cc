package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LoggerContextKey ContextKey = "request.logger"
	megabyte                    = 1 << 20
)

var _ zapcore.WriteSyncer = (*RotatingLogWriter)(nil)

// RotatingLogWriter is a size based rotating and concurrent safe
// file writer used as the zap core output. A new file is created
// into the logs folder once the current one reaches the max size.
type RotatingLogWriter struct {
	mu     sync.Mutex
	clock  Clocker
	file   *os.File
	folder string
	limit  int64
	size   int64
	env    string
}

// NewRotatingLogWriter provides a writer which lazily opens its first file.
func NewRotatingLogWriter(config *Config, clock Clocker) *RotatingLogWriter {
	env := "dev"
	if config.IsProduction {
		env = "prod"
	}
	return &RotatingLogWriter{
		clock:  clock,
		folder: config.LogFolder,
		limit:  int64(config.LogMaxSize) * megabyte,
		env:    env,
	}
}

// Write appends p to the current file and rotates before when p does not fit.
func (lw *RotatingLogWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	size := int64(len(p))
	if size > lw.limit {
		return 0, fmt.Errorf("logging: entry of %d bytes exceeds max file size of %d bytes", size, lw.limit)
	}
	if lw.file == nil || lw.size+size > lw.limit {
		if err := lw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := lw.file.Write(p)
	lw.size += int64(n)
	return n, err
}

func (lw *RotatingLogWriter) rotate() error {
	if lw.file != nil {
		if err := lw.file.Close(); err != nil {
			return err
		}
		lw.file = nil
	}
	file, err := os.OpenFile(LogFilePath(lw.folder, lw.env, lw.clock.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	lw.file = file
	lw.size = 0
	return nil
}

// Sync flushes the current file if any.
func (lw *RotatingLogWriter) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.file == nil {
		return nil
	}
	return lw.file.Sync()
}

// Close closes the current log file.
func (lw *RotatingLogWriter) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.file == nil {
		return nil
	}
	err := lw.file.Close()
	lw.file = nil
	return err
}

// stdoutSyncer avoids the `Handle is invalid` error returned by Sync on os.Stdout.
type stdoutSyncer struct{}

func (stdoutSyncer) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdoutSyncer) Sync() error { return nil }

// SetupLogging initializes the application logger. Production logs are JSON
// lines written to the rotating file only. Development logs go to the file
// and to the console. Every entry carries the build details.
func SetupLogging(config *Config, w zapcore.WriteSyncer, clock Clocker) (*zap.Logger, func() error) {
	var encoderConfig zapcore.EncoderConfig
	if config.IsProduction {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "lvl"
	encoderConfig.NameKey = "name"
	encoderConfig.MessageKey = "msg"
	encoderConfig.CallerKey = "caller"
	encoderConfig.StacktraceKey = "skt"

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), w, config.LogLevel)}
	if !config.IsProduction {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(stdoutSyncer{}), config.LogLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel), zap.WithClock(zapClock{clock}))
	logger = logger.With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}

	return logger, flusher
}

// zapClock adapts a Clocker to the zapcore.Clock interface.
type zapClock struct {
	clock Clocker
}

func (zc zapClock) Now() time.Time { return zc.clock.Now() }

func (zc zapClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

// LoggerFromContext returns the request scoped logger or the fallback one.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// LogFilePath builds the path of a new log file named after its creation time.
func LogFilePath(folder, env string, t time.Time) string {
	name := fmt.Sprintf("%04d%02d%02d.%02d%02d%02d.%s.log", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), env)
	return filepath.Join(folder, name)
}
