// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and output. DEV gets human readable console
// output, every other environment gets JSON lines. An unknown level falls
// back to info and is reported.
func Setup(level, env string, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(env, "DEV") {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return fmt.Errorf("unknown log level %q, using info", level)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}
