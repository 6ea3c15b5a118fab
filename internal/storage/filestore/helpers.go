package filestore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/sonroyaalmerol/davsync/internal/storage"
)

// collKey maps a collection path onto a flat directory name.
func collKey(path string) string {
	return strconv.FormatUint(xxhash.Sum64String(path), 16)
}

func (s *Store) collDir(path string) string {
	return filepath.Join(s.root, "collections", collKey(path))
}
func (s *Store) collMetaPath(path string) string {
	return filepath.Join(s.collDir(path), "meta.json")
}
func (s *Store) collObjectsDir(path string) string {
	return filepath.Join(s.collDir(path), "objects")
}
func (s *Store) objPath(path, name string) string {
	// one file per item name
	return filepath.Join(s.collObjectsDir(path), name+".json")
}

type collMeta struct {
	Path        string    `json:"path"`
	Kind        string    `json:"kind"`
	DisplayName string    `json:"display_name"`
	CTag        string    `json:"ctag"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type objFile struct {
	Collection  string    `json:"collection"`
	Name        string    `json:"name"`
	ETag        string    `json:"etag"`
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *collMeta) toCollection() *storage.Collection {
	return &storage.Collection{
		Path:        m.Path,
		Kind:        m.Kind,
		DisplayName: m.DisplayName,
		CTag:        m.CTag,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (of *objFile) toObject() *storage.Object {
	return &storage.Object{
		Collection:  of.Collection,
		Name:        of.Name,
		ETag:        of.ETag,
		Data:        of.Data,
		ContentType: of.ContentType,
		UpdatedAt:   of.UpdatedAt,
	}
}

func readJSON[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(b, out)
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// withCollLock serialises writers of one collection within the process.
func (s *Store) withCollLock(path string, fn func() error) error {
	s.mu.Lock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	s.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

// touch bumps the CTag of a loaded collection and persists it.
func (s *Store) touch(meta *collMeta) error {
	now := time.Now().UTC()
	meta.CTag = storage.NewCTag(meta.Path, now)
	meta.UpdatedAt = now
	return writeJSON(s.collMetaPath(meta.Path), meta)
}
