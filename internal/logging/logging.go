// Package logging builds the slog loggers shared by every binary.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Supported formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w. FormatAuto picks colourised text when w
// is a terminal and JSON otherwise.
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatAuto:
		if isTerminal(w) {
			return newText(w, lvl, false), nil
		}
		return newJSON(w, lvl), nil
	case FormatText:
		return newText(w, lvl, !isTerminal(w)), nil
	case FormatJSON:
		return newJSON(w, lvl), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// MustNew is New for process start-up, falling back to JSON at info level on
// bad settings.
func MustNew(format, level string) *slog.Logger {
	logger, err := New(os.Stderr, format, level)
	if err != nil {
		logger = newJSON(os.Stderr, slog.LevelInfo)
		logger.Warn("invalid logging configuration, using defaults", "error", err)
	}
	return logger
}

// ParseLevel maps debug|info|warn|error (case-insensitive) to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newText(w io.Writer, lvl slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}))
}

func newJSON(w io.Writer, lvl slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
