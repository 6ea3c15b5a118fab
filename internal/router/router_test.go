package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/acl"
	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/dav"
	"github.com/sonroyaalmerol/davsync/internal/metrics"
	"github.com/sonroyaalmerol/davsync/internal/storage/filestore"
)

const card = "BEGIN:VCARD\r\nVERSION:3.0\r\nUID:c1\r\nFN:Jane Doe\r\nEND:VCARD\r\n"

func newRouter(t *testing.T, rights string) http.Handler {
	t.Helper()
	metrics.Reset()
	cfg := &config.Config{
		HTTP:    config.HTTPConfig{BasePath: "/", MaxItemBytes: 1 << 20},
		Storage: config.StorageConfig{Type: config.StorageFilesystem, FilesystemFolder: t.TempDir(), CacheTTL: time.Second},
		Rights:  config.RightsConfig{Type: rights},
	}
	logger := zerolog.New(zerolog.NewTestWriter(t))
	store, err := filestore.New(cfg.Storage.FilesystemFolder, logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	provider, err := acl.New(rights)
	require.NoError(t, err)
	return New(cfg, dav.NewHandlers(cfg, store, provider, logger), logger)
}

func serve(h http.Handler, method, target, body string, kv ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOptionsAdvertisesCapabilities(t *testing.T) {
	h := newRouter(t, config.RightsNone)
	rec := serve(h, http.MethodOptions, "/anything/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1, 3, calendar-access, addressbook", rec.Header().Get("DAV"))
	assert.Contains(t, rec.Header().Get("Allow"), "MKCALENDAR")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newRouter(t, config.RightsNone)
	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	serve(h, http.MethodPut, "/bob/book/c1.vcf", card)
	serve(h, "PROPFIND", "/missing/", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodPut, "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("PROPFIND", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ItemsWritten.WithLabelValues("addressbook")))

	rec = serve(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "davsync_server_requests_total")
}

func TestUnknownMethod(t *testing.T) {
	h := newRouter(t, config.RightsNone)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, "LOCK", "/bob/", "").Code)
}

func TestMalformedAuthorization(t *testing.T) {
	h := newRouter(t, config.RightsNone)
	rec := serve(h, "PROPFIND", "/", "", "Authorization", "Bearer abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}

func TestOwnerOnlyRights(t *testing.T) {
	h := newRouter(t, config.RightsOwnerOnly)
	bob := "Basic Ym9iOnB3"       // bob:pw
	alice := "Basic YWxpY2U6cHc=" // alice:pw

	rec := serve(h, http.MethodPut, "/bob/book/c1.vcf", card)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = serve(h, http.MethodPut, "/bob/book/c1.vcf", card, "Authorization", alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodPut, "/bob/book/c1.vcf", card, "Authorization", bob)
	assert.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/bob/book/c1.vcf", "", "Authorization", bob).Code)
	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/bob/book/c1.vcf", "", "Authorization", alice).Code)
}

func TestReadOnlyRights(t *testing.T) {
	h := newRouter(t, config.RightsReadOnly)
	rec := serve(h, http.MethodPut, "/bob/book/c1.vcf", card, "Authorization", "Basic Ym9iOnB3")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusNotFound, serve(h, "PROPFIND", "/bob/book/", "").Code)
}

func TestStatusRecorderDefaults(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _ = rec.Write([]byte("abc"))
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, rec.status)
	assert.Equal(t, 3, rec.bytes)
	assert.Equal(t, http.StatusOK, statusOrDefault(0))
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", realIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", realIP(req))
}
