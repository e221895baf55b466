package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var zlog = zerolog.Nop()

// Init configures the process-wide zerolog logger on stdout. Development
// environments get a console writer, everything else emits JSON.
func Init(env, level string) {
	InitTo(os.Stdout, env, level)
}

// InitTo is Init with an explicit destination. The CLI logs to stderr so
// command output stays machine readable.
func InitTo(out io.Writer, env, level string) {
	var w io.Writer
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		w = out
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zlog = New(w, level)
}

// New builds a logger writing to w at the given level.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", "tutorialcms").
		Logger()
}

// Get returns the process logger. It is a no-op logger until Init runs.
func Get() zerolog.Logger {
	return zlog
}

// With returns a child logger tagged with the component name.
func With(component string) zerolog.Logger {
	return zlog.With().Str("component", component).Logger()
}
