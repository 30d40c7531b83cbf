package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger keeps the printf-style surface used across the tool on top of a
// zerolog console logger.
type Logger struct {
	Debug bool
	zl    zerolog.Logger
}

func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, debug)
}

func NewLoggerTo(w io.Writer, debug bool) *Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()

	return &Logger{Debug: debug, zl: zl}
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msg(line(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.zl.Info().Msg(line(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.zl.Error().Msg(line(format, args...))
}

func line(format string, args ...any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
