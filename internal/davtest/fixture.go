package davtest

import (
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/davclient"
	"github.com/sonroyaalmerol/davsync/internal/logging"
)

// Host is never dialled; it only makes client URLs absolute.
const Host = "http://127.0.0.1"

// Option adjusts the client options handed out by Fixture.Storage.
type Option func(*davclient.Options)

// WithCredentials sets Basic auth credentials on the client.
func WithCredentials(username, password string) Option {
	return func(o *davclient.Options) {
		o.Username = username
		o.Password = password
	}
}

// WithUserAgent sets the User-Agent header the client sends.
func WithUserAgent(ua string) Option {
	return func(o *davclient.Options) { o.UserAgent = ua }
}

// Fixture is an embedded server behind an installed interceptor, rooted at
// a per-test directory.
type Fixture struct {
	BaseURL string
	Dir     string
	App     http.Handler

	logger zerolog.Logger

	mu sync.Mutex
	ic *Interceptor
}

// New resets the server onto a fresh temporary directory, launches it and
// installs an interceptor for the duration of t.
func New(t testing.TB, prefix string) *Fixture {
	t.Helper()

	dir := t.TempDir()
	ResetServerState(t, dir)

	cfg, err := config.Current()
	require.NoError(t, err)
	logger := logging.New(cfg.LogLevel, zerolog.NewTestWriter(t))

	app := Launch(t, logger)

	ic, err := Install(app, prefix)
	require.NoError(t, err)

	f := &Fixture{
		BaseURL: Host + prefix,
		Dir:     dir,
		App:     app,
		logger:  logger,
		ic:      ic,
	}
	t.Cleanup(f.Teardown)
	return f
}

// Interceptor returns the installed interceptor, nil after Teardown.
func (f *Fixture) Interceptor() *Interceptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ic
}

// Storage returns a client for BaseURL whose requests go through the
// interceptor.
func (f *Fixture) Storage(t testing.TB, kind davclient.Kind, opts ...Option) *davclient.Storage {
	t.Helper()

	ic := f.Interceptor()
	require.NotNil(t, ic, "fixture already torn down")

	o := davclient.Options{URL: f.BaseURL, Session: ic, Logger: f.logger}
	for _, opt := range opts {
		opt(&o)
	}
	s, err := davclient.New(kind, o)
	require.NoError(t, err)
	return s
}

// Teardown removes the interceptor. Calling it again does nothing.
func (f *Fixture) Teardown() {
	f.mu.Lock()
	ic := f.ic
	f.ic = nil
	f.mu.Unlock()

	if ic != nil {
		ic.Remove()
	}
}
