package obs

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the shared structured logger. Production mode writes JSON
// lines to stdout; dev mode switches to the human-readable console writer.
func NewLogger(service, version string, dev bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if dev {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}
