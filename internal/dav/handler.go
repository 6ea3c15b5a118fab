package dav

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/davsync/internal/acl"
	"github.com/sonroyaalmerol/davsync/internal/auth"
	"github.com/sonroyaalmerol/davsync/internal/cache"
	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/storage"
)

type Handlers struct {
	cfg         *config.Config
	store       storage.Store
	rights      acl.Provider
	logger      zerolog.Logger
	basePath    string
	collections *cache.Cache[string, *storage.Collection]
}

func NewHandlers(cfg *config.Config, store storage.Store, rights acl.Provider, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:         cfg,
		store:       store,
		rights:      rights,
		logger:      logger.With().Str("component", "dav").Logger(),
		basePath:    strings.TrimSuffix(cfg.HTTP.BasePath, "/"),
		collections: cache.New[string, *storage.Collection](cfg.Storage.CacheTTL),
	}
}

// loadCollection returns nil, nil for a collection that does not exist.
func (h *Handlers) loadCollection(ctx context.Context, p string) (*storage.Collection, error) {
	if c, ok := h.collections.Get(p); ok {
		return c, nil
	}
	c, err := h.store.GetCollection(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h.collections.Put(p, c)
	return c, nil
}

func (h *Handlers) forget(p string) {
	h.collections.Delete(p)
}

// allowed enforces the rights policy and writes 401/403 when denied.
func (h *Handlers) allowed(w http.ResponseWriter, r *http.Request, p string, write bool) bool {
	user := ""
	if pr, ok := auth.PrincipalFrom(r.Context()); ok && pr != nil {
		user = pr.UserID
	}
	eff, err := h.rights.Effective(r.Context(), user, p)
	if err == nil && ((write && eff.CanWrite()) || (!write && eff.CanRead())) {
		return true
	}
	if user == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="DAV", charset="UTF-8"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	http.Error(w, "forbidden", http.StatusForbidden)
	return false
}

func (h *Handlers) storageError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrPreconditionFailed):
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
	case errors.Is(err, storage.ErrExists):
		http.Error(w, "already exists", http.StatusMethodNotAllowed)
	default:
		h.logger.Error().Err(err).Msg(msg)
		http.Error(w, "storage error", http.StatusInternalServerError)
	}
}
