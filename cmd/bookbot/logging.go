package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/randalmurphal/bookgraph/pkg/config"
)

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newLogger writes JSON to stderr and, when a file is configured, to a
// rotated log file. The returned func closes the file.
func newLogger(cfg config.LogSettings, verbose bool, stderr io.Writer) (*slog.Logger, func(context.Context) error) {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	out := stderr
	closeFn := func(context.Context) error { return nil }
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(stderr, rotator)
		closeFn = func(context.Context) error { return rotator.Close() }
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "bookbot"), closeFn
}
