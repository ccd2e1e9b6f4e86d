// Package logging builds the process-wide slog.Logger. Records are rendered
// by charmbracelet/log, which implements slog.Handler.
//
//	logger, err := logging.New(logging.Config{Level: "debug"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ErrInvalidFormat is returned for an unknown formatter name.
var ErrInvalidFormat = errors.New("invalid log format")

// Config configures the logger.
type Config struct {
	// Level is the minimum level (debug, info, warn, error). Empty means info.
	Level string

	// Format is text, json or logfmt. Empty means text.
	Format string

	// Timestamp adds a time field to every record.
	Timestamp bool

	// Output defaults to stderr.
	Output io.Writer
}

// ParseLevel parses a level name.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
	}
}

// New returns a slog.Logger backed by a charmbracelet/log handler.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	handler := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          "svault",
		ReportTimestamp: cfg.Timestamp,
		TimeFormat:      time.DateTime,
		Formatter:       formatter,
	})
	return slog.New(handler), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
