package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Settings controls the global zerolog logger.
type Settings struct {
	Level  string
	Format string // auto|text|json
	File   string
}

// Init configures the global logger. It returns a closer for the log file, if any.
func Init(s Settings) (io.Closer, error) {
	level, err := parseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
		tty              = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	)
	if s.File != "" {
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "open log file %s", s.File)
		}
		out, closer, tty = f, f, false
	}

	switch strings.ToLower(s.Format) {
	case "json":
	case "text":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: !tty}
	case "", "auto":
		if tty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		}
	default:
		return nil, errors.Errorf("unknown log format %q", s.Format)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
