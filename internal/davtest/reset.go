package davtest

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/httpserver"
	"github.com/sonroyaalmerol/davsync/internal/metrics"
)

// ResetServerState discards all process-wide server state and configures a
// filesystem store rooted at dir with no access rights checks. Option
// overrides in the environment are unset for the rest of the test.
func ResetServerState(t testing.TB, dir string) {
	t.Helper()

	httpserver.Purge()
	metrics.Reset()
	config.Reset()

	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, config.EnvPrefix+"_") && k != config.EnvConfigFile {
			t.Setenv(k, "")
			require.NoError(t, os.Unsetenv(k))
		}
	}
	// No config file from /etc or $HOME.
	t.Setenv(config.EnvConfigFile, "")

	require.NoError(t, config.Init())
	require.NoError(t, config.Set("storage.type", config.StorageFilesystem))
	require.NoError(t, config.Set("storage.filesystem_folder", dir))
	require.NoError(t, config.Set("rights.type", config.RightsNone))
}
