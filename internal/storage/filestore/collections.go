package filestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/sonroyaalmerol/davsync/internal/storage"
)

func (s *Store) CreateCollection(ctx context.Context, c *storage.Collection) error {
	if c.Path == "" {
		return errors.New("collection path required")
	}
	return s.withCollLock(c.Path, func() error {
		if _, err := os.Stat(s.collMetaPath(c.Path)); err == nil {
			return storage.ErrExists
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(s.collObjectsDir(c.Path), 0o755); err != nil {
			return err
		}
		now := time.Now().UTC()
		meta := collMeta{
			Path:        c.Path,
			Kind:        c.Kind,
			DisplayName: c.DisplayName,
			CTag:        storage.NewCTag(c.Path, now),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := writeJSON(s.collMetaPath(c.Path), &meta); err != nil {
			return err
		}
		*c = *meta.toCollection()
		s.logger.Debug().Str("path", c.Path).Str("kind", c.Kind).Msg("collection created")
		return nil
	})
}

func (s *Store) GetCollection(ctx context.Context, path string) (*storage.Collection, error) {
	var meta collMeta
	if err := readJSON(s.collMetaPath(path), &meta); err != nil {
		return nil, err
	}
	return meta.toCollection(), nil
}

func (s *Store) UpdateCollection(ctx context.Context, c *storage.Collection) error {
	return s.withCollLock(c.Path, func() error {
		var meta collMeta
		if err := readJSON(s.collMetaPath(c.Path), &meta); err != nil {
			return err
		}
		meta.DisplayName = c.DisplayName
		if c.Kind != "" {
			meta.Kind = c.Kind
		}
		return s.touch(&meta)
	})
}

func (s *Store) DeleteCollection(ctx context.Context, path string) error {
	return s.withCollLock(path, func() error {
		if _, err := os.Stat(s.collMetaPath(path)); errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return os.RemoveAll(s.collDir(path))
	})
}
