// Package logger provides structured logging for the timer server.
// Every engine transition and client command should be traceable through this.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Format selects how log lines are rendered.
type Format string

const (
	FormatTerminal Format = "terminal"
	FormatJSON     Format = "json"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "l"
	zerolog.MessageFieldName = "m"
}

// Logger provides structured logging with context.
// A nil *Logger is valid and discards everything.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a terminal logger on stdout at info level.
func NewLogger() *Logger {
	return New(os.Stdout, zerolog.InfoLevel, FormatTerminal)
}

// New creates a logger writing to w.
func New(w io.Writer, level zerolog.Level, format Format) *Logger {
	if format == FormatTerminal {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return &Logger{
		zl: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// Nop returns a logger that drops all output.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel maps names like "debug" or "warn" to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}

	return lvl, nil
}

// ParseFormat validates a log format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTerminal, FormatJSON:
		return f, nil
	default:
		return "", errors.Errorf("invalid log format %q", s)
	}
}

// With returns a child logger tagged with the given module name.
func (l *Logger) With(module string) *Logger {
	if l == nil {
		return Nop()
	}

	return &Logger{zl: l.zl.With().Str("module", module).Logger()}
}

// Zerolog exposes the underlying logger for call sites that need typed fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}

	return &l.zl
}

// Debug logs verbose diagnostics.
func (l *Logger) Debug(msg string) {
	l.Zerolog().Debug().Msg(msg)
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.Zerolog().Info().Msg(msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.Zerolog().Warn().Msg(msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.Zerolog().Error().Msg(msg)
}

// Err logs msg with err attached.
func (l *Logger) Err(err error, msg string) {
	l.Zerolog().Error().Err(err).Msg(msg)
}

// Event logs a timer event with the actor that caused it.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.Zerolog().Info().
		Str("event", eventType).
		Str("actor", actorID).
		Msg(details)
}
