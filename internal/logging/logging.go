package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/lnemail-client/internal/model"
)

// New builds a logger that appends JSON lines to cfg.File. The terminal
// client owns the screen, so nothing is written to stdout or stderr. The
// returned closer releases the file.
func New(cfg model.LogConfig) (zerolog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.Level)

	if cfg.File == "" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}

	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, f, nil
}

// NewConsole builds a human-readable logger on w, used by the proxy.
func NewConsole(w io.Writer, levelName string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(ParseLevel(levelName)).With().Timestamp().Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	if name == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
