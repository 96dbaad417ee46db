package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/alkime/drumtone/internal/config"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger configures structured JSON logging on stdout, used by the stub server.
func SetupLogger(cfg *config.Config) *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: Level(cfg),
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// SetupCLI logs human readable text to a terminal and JSON when w is piped.
func SetupCLI(cfg *config.Config, w *os.File) *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	opts := &slog.HandlerOptions{Level: Level(cfg)}

	var handler slog.Handler
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// SetupFile sends logs to a size rotated file while the terminal UI owns the screen.
// Close the returned closer on exit.
func SetupFile(cfg *config.Config, path string) (*slog.Logger, io.Closer) {
	//nolint:exhaustruct // rotation defaults are fine
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}

	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(rotator, &slog.HandlerOptions{
		Level: Level(cfg),
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, rotator
}

// Level resolves the configured level. Development always logs debug.
func Level(cfg *config.Config) slog.Level {
	if cfg.Env == "development" {
		return slog.LevelDebug
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return level
}
