package workflowrest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger installs the default logger: colored text on stderr and, when a log file is
// configured, JSON lines in a rotated file. The returned closer releases the file.
func SetupLogger() io.Closer {
	level := parseLevel(config.GetSystemSettingString(config.LOG_LEVEL))
	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339Nano,
		}),
	}
	var closer io.Closer = io.NopCloser(nil)
	if file := config.GetSystemSettingString(config.LOG_FILE); file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    config.GetSystemSettingInteger(config.LOG_MAX_SIZE_MB),
			MaxBackups: config.GetSystemSettingInteger(config.LOG_MAX_BACKUPS),
			MaxAge:     config.GetSystemSettingInteger(config.LOG_MAX_AGE_DAYS),
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level}))
		closer = rotator
	}
	slog.SetDefault(slog.New(fanoutHandler(handlers)))
	return closer
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// fanoutHandler sends every record to each handler that accepts its level.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
