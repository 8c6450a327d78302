package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log records go. An empty File keeps output on stderr only.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Setup(level string) {
	SetupWithOptions(Options{Level: level})
}

// SetupWithOptions installs the default logger. The returned closer flushes the
// rotating file sink, if one was configured.
func SetupWithOptions(opts Options) io.Closer {
	logLevel := ParseLevel(opts.Level)

	console := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
	})

	if strings.TrimSpace(opts.File) == "" {
		slog.SetDefault(slog.New(console))
		return nopCloser{}
	}

	sink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 20),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   true,
	}
	file := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: logLevel})

	slog.SetDefault(slog.New(&fanout{handlers: []slog.Handler{console, file}}))
	return sink
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
