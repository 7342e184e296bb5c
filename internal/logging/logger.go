// Package logging configures the process-wide zerolog logger and provides
// the startup summary every binary emits once its wiring is done.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. BABYGEN_LOG_LEVEL selects the level
// (debug, info, warn, error; default info). On Lambda the logger keeps
// zerolog's native JSON so CloudWatch Logs Insights can query individual
// fields; everywhere else it switches to the human-readable console writer.
func Init() {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("BABYGEN_LOG_LEVEL")))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
