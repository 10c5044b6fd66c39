// Package observability configures the process-wide structured logger.
package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Level accepts the standard
// zerolog names (trace, debug, info, warn, error); an empty level means
// info. Format is "json", "console", or "auto"; auto picks the console
// writer when stderr is a terminal and JSON otherwise, so piped output
// stays machine-readable.
func Setup(level, format string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(writerFor(format, os.Stderr)).With().Timestamp().Logger()
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	cleaned := strings.ToLower(strings.TrimSpace(level))
	if cleaned == "" {
		return zerolog.InfoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(cleaned)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

func writerFor(format string, out *os.File) io.Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return consoleWriter(out)
	case "json":
		return out
	default:
		if IsTTY(out.Fd()) {
			return consoleWriter(out)
		}
		return out
	}
}

func consoleWriter(out *os.File) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
}
