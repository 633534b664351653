package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrorPrinter reports problems which should reach the user, but which do not
// by themselves abort the run.
type ErrorPrinter interface {
	Ln(v ...interface{})
	F(format string, v ...interface{})
}

type StderrErrorPrinter struct{}

func (p *StderrErrorPrinter) Ln(v ...interface{}) {
	fmt.Fprintln(os.Stderr, v...)
}

func (p *StderrErrorPrinter) F(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format, v...)
}

// L is the process-wide structured logger. It discards debug output until
// Init is called.
var L = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", levelStr)
}

// NewLogger builds a text logger writing to w at the given level. Unknown
// levels fall back to info.
func NewLogger(levelStr string, w io.Writer) *slog.Logger {
	level, err := ParseLevel(levelStr)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if err != nil {
		logger.Warn("Invalid log level, defaulting to info", "configuredLevel", levelStr)
	}
	return logger
}

// Init replaces L and the slog default.
func Init(levelStr string, w io.Writer) {
	L = NewLogger(levelStr, w)
	slog.SetDefault(L)
}
