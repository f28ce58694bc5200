// Package log builds the structured loggers used across mdedit.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Category groups related log messages.
type Category string

const (
	CatParse  Category = "parse"  // Markdown parsing and serialization
	CatEdit   Category = "edit"   // editing state machine
	CatStore  Category = "store"  // snapshot load/save
	CatConfig Category = "config" // configuration loading
	CatHost   Category = "host"   // host events and notifications
)

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log: unknown level %q", s)
}

// New returns a text logger writing to w at level and above.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard drops everything.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// For tags l with a category. A nil l gives a discarding logger.
func For(l *slog.Logger, c Category) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(slog.String("cat", string(c)))
}
