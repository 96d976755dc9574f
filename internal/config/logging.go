package config

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels are accepted too (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// NewLogger builds a text slog logger. Records go to a rotated log file when
// cfg.Filename is set, otherwise to fallback. Verbose forces the debug level.
func NewLogger(cfg LogConfig, verbose bool, fallback io.Writer) *slog.Logger {
	logLevel := parseSlogLevel(cfg.Level, slog.LevelWarn)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logPath := strings.TrimSpace(cfg.Filename)
	if logPath == "" {
		return slog.New(slog.NewTextHandler(fallback, &slog.HandlerOptions{Level: logLevel}))
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})
	return slog.New(handler)
}
