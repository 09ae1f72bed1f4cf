package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type Config struct {
	Level  string // debug, info, warn, error; default info
	Format string // text, json, logfmt; default json
	Output io.Writer
}

// New builds a structured logger. Unknown levels fall back to info and
// unknown formats to JSON.
func New(cfg Config) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = log.InfoLevel
	}

	var formatter log.Formatter
	switch strings.ToLower(cfg.Format) {
	case "text":
		formatter = log.TextFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		formatter = log.JSONFormatter
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

// OrDefault returns l, or the package default logger when l is nil.
func OrDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
