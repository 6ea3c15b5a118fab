package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

type Store struct {
	root   string
	mu     sync.Mutex // protects the collection-level lock map
	locks  map[string]*sync.Mutex
	logger zerolog.Logger
}

// New creates or opens a filesystem store rooted at rootDir.
// It will create the directory structure if missing.
func New(rootDir string, logger zerolog.Logger) (*Store, error) {
	if rootDir == "" {
		return nil, errors.New("rootDir required")
	}
	if err := os.MkdirAll(filepath.Join(rootDir, "collections"), 0o755); err != nil {
		return nil, err
	}
	return &Store{
		root:   rootDir,
		locks:  make(map[string]*sync.Mutex),
		logger: logger.With().Str("component", "filestore").Logger(),
	}, nil
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = make(map[string]*sync.Mutex)
}
