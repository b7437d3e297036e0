// Package logging sets up the structured file logger. The terminal UI owns
// stdout, so logs only ever go to a file unless Verbose is set.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhle/nowtask/internal/model"
)

// FileName is the log file created inside the configured directory.
const FileName = "nowtask.jsonl"

// Options tunes New.
type Options struct {
	// Verbose mirrors log lines to stderr.
	Verbose bool

	// Component is attached to every record.
	Component string
}

// New opens (or creates) the log file under cfg.Dir and returns a JSON
// logger writing to it. The returned closer closes the file.
func New(cfg model.LogConfig, opts Options) (*slog.Logger, io.Closer, error) {
	dir := model.ExpandHome(cfg.Dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = file
	if opts.Verbose {
		w = io.MultiWriter(os.Stderr, file)
	}

	component := opts.Component
	if component == "" {
		component = "nowtask"
	}
	return NewWithWriter(w, cfg.Level).With("component", component), file, nil
}

// NewWithWriter returns a JSON logger writing to w at the given level.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
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
