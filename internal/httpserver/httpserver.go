package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/davsync/internal/acl"
	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/dav"
	"github.com/sonroyaalmerol/davsync/internal/router"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

// NewApplication builds the DAV handler for cfg. The returned cleanup releases
// the application's hold on its store.
func NewApplication(cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	store, release, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	rights, err := acl.New(cfg.Rights.Type)
	if err != nil {
		release()
		return nil, nil, err
	}

	davh := dav.NewHandlers(cfg, store, rights, logger)
	mux := router.New(cfg, davh, logger)
	return mux, release, nil
}

func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	app, cleanup, err := NewApplication(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build application: %w", err)
	}

	srv := &Server{
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      app,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	logger.Info().Msgf("listening on %s (storage=%s)", cfg.HTTP.Addr, cfg.Storage.Type)
	return srv, cleanup, nil
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
