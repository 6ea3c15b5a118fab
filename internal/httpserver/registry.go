package httpserver

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/storage"
	"github.com/sonroyaalmerol/davsync/internal/storage/filestore"
	"github.com/sonroyaalmerol/davsync/internal/storage/sqlite"
)

type registered struct {
	store storage.Store
	refs  int
}

// Open stores are shared per (type, location) within the process.
var (
	registryMu sync.Mutex
	registry   = map[string]*registered{}
)

func registryKey(cfg *config.Config) string {
	switch cfg.Storage.Type {
	case config.StorageSQLite:
		return cfg.Storage.Type + ":" + cfg.Storage.SQLitePath
	default:
		return cfg.Storage.Type + ":" + cfg.Storage.FilesystemFolder
	}
}

// OpenStore returns the shared store for cfg, opening it on first use. The
// release func drops this caller's hold; the last release closes the store.
func OpenStore(cfg *config.Config, logger zerolog.Logger) (storage.Store, func(), error) {
	key := registryKey(cfg)

	registryMu.Lock()
	defer registryMu.Unlock()

	reg, ok := registry[key]
	if !ok {
		var (
			store storage.Store
			err   error
		)
		switch cfg.Storage.Type {
		case config.StorageFilesystem:
			store, err = filestore.New(cfg.Storage.FilesystemFolder, logger)
		case config.StorageSQLite:
			store, err = sqlite.New(cfg.Storage.SQLitePath, logger)
		default:
			err = fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
		}
		if err != nil {
			return nil, nil, err
		}
		reg = &registered{store: store}
		registry[key] = reg
	}
	reg.refs++

	var once sync.Once
	release := func() {
		once.Do(func() {
			registryMu.Lock()
			defer registryMu.Unlock()
			reg.refs--
			if reg.refs <= 0 && registry[key] == reg {
				reg.store.Close()
				delete(registry, key)
			}
		})
	}
	return reg.store, release, nil
}

// Purge closes and forgets every open store.
func Purge() {
	registryMu.Lock()
	defer registryMu.Unlock()
	for key, reg := range registry {
		reg.store.Close()
		delete(registry, key)
	}
}

// OpenStores reports how many stores are currently registered.
func OpenStores() int {
	registryMu.Lock()
	defer registryMu.Unlock()
	return len(registry)
}
