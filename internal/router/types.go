package router

import (
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/dav"
)

type Router struct {
	config   *config.Config
	handlers *dav.Handlers
	logger   zerolog.Logger
}
