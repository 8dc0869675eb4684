package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/apache/age-viewer/backend/internal/config"
)

const (
	retainedFiles = 15
	maxFileSizeMB = 100
	timeLayout    = "2006-01-02 15:04:05"
)

// Dir returns the log directory for cfg, falling back to the platform
// app-data directory.
func Dir(cfg config.LoggingConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return AppDataDir(runtime.GOOS, home), nil
}

// New builds a slog.Logger that writes an info stream and an error stream
// to daily rotated files, plus a coloured console outside production. The
// returned closer flushes and closes the files.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	dir, err := Dir(cfg)
	if err != nil {
		return nil, nil, err
	}
	errDir := filepath.Join(dir, "error")
	if err := os.MkdirAll(errDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	level := parseLevel(cfg.Level)
	info := NewDailyWriter(newFile(filepath.Join(dir, "info.log")), nil)
	errs := NewDailyWriter(newFile(filepath.Join(errDir, "error.log")), nil)

	handlers := []slog.Handler{
		fileHandler(cfg, info, level),
		fileHandler(cfg, errs, slog.LevelError),
	}
	if !cfg.Production {
		handlers = append(handlers, newConsoleHandler(os.Stdout, level))
	}

	return slog.New(fanout(handlers)), closers{info, errs}, nil
}

func newFile(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   name,
		MaxSize:    maxFileSizeMB,
		MaxBackups: retainedFiles,
		MaxAge:     retainedFiles,
		Compress:   true,
		LocalTime:  true,
	}
}

func fileHandler(cfg config.LoggingConfig, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.IncludeCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(timeLayout))
			}
			return a
		},
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}
