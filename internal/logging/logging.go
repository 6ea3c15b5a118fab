package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger at the given level writing to w.
// A nil writer means stdout; an unknown level means info.
func New(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stdout
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
