package davtest

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/httpserver"
)

// Launch builds one server application from the current settings.
func Launch(t testing.TB, logger zerolog.Logger) http.Handler {
	t.Helper()

	cfg, err := config.Current()
	require.NoError(t, err)

	app, cleanup, err := httpserver.NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return app
}
