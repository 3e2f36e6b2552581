// Package logging owns the process-wide slog configuration.
//
// Handles never configure logging themselves. The command (or the embedding
// frontend) calls Init once at startup; every later call is a no-op, so it is
// safe to call from any number of entry points.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Options selects the handler installed by Init.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Format is "text" or "json". Empty means text.
	Format string

	// Writer receives log records. Nil means os.Stderr.
	Writer io.Writer
}

var (
	once   sync.Once
	active Options
)

// Init installs the default slog logger described by opts.
// Only the first call in a process has an effect; it reports whether this
// call was the one that initialized logging.
func Init(opts Options) (initialized bool, err error) {
	handler, err := NewHandler(opts)
	if err != nil {
		return false, err
	}
	once.Do(func() {
		slog.SetDefault(slog.New(handler))
		active = opts
		initialized = true
	})
	return initialized, nil
}

// Active returns the options of the Init call that took effect.
func Active() Options {
	return active
}

// NewHandler builds the handler Init would install.
func NewHandler(opts Options) (slog.Handler, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		return slog.NewTextHandler(w, ho), nil
	case "json":
		return slog.NewJSONHandler(w, ho), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

// ParseLevel converts a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// Discard returns a logger that drops every record. Used by tests and by
// library embedders that want the bridge silent.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
