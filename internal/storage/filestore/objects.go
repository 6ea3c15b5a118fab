package filestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sonroyaalmerol/davsync/internal/storage"
)

func (s *Store) GetObject(ctx context.Context, collection, name string) (*storage.Object, error) {
	var of objFile
	if err := readJSON(s.objPath(collection, name), &of); err != nil {
		return nil, err
	}
	return of.toObject(), nil
}

func (s *Store) PutObject(ctx context.Context, obj *storage.Object, check storage.Precondition) error {
	if obj.Collection == "" || obj.Name == "" {
		return errors.New("collection and name required")
	}
	id := obj.Collection
	return s.withCollLock(id, func() error {
		var meta collMeta
		if err := readJSON(s.collMetaPath(id), &meta); err != nil {
			return err
		}
		if check != nil {
			var (
				prev objFile
				cur  *storage.Object
			)
			switch err := readJSON(s.objPath(id, obj.Name), &prev); {
			case err == nil:
				cur = prev.toObject()
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
			if !check(cur) {
				return storage.ErrPreconditionFailed
			}
		}
		if err := os.MkdirAll(s.collObjectsDir(id), 0o755); err != nil {
			return err
		}

		if obj.ETag == "" {
			obj.ETag = storage.ETag(obj.Data)
		}
		obj.UpdatedAt = time.Now().UTC()

		of := objFile{
			Collection:  obj.Collection,
			Name:        obj.Name,
			ETag:        obj.ETag,
			Data:        obj.Data,
			ContentType: obj.ContentType,
			UpdatedAt:   obj.UpdatedAt,
		}
		if err := writeJSON(s.objPath(id, obj.Name), &of); err != nil {
			return err
		}
		return s.touch(&meta)
	})
}

func (s *Store) DeleteObject(ctx context.Context, collection, name string, etag string) error {
	id := collection
	return s.withCollLock(id, func() error {
		var meta collMeta
		if err := readJSON(s.collMetaPath(id), &meta); err != nil {
			return err
		}

		objPath := s.objPath(id, name)
		var of objFile
		if err := readJSON(objPath, &of); err != nil {
			return err
		}
		// if etag provided, verify
		if etag != "" && of.ETag != etag {
			return storage.ErrPreconditionFailed
		}
		if err := os.Remove(objPath); err != nil {
			return err
		}
		return s.touch(&meta)
	})
}

func (s *Store) ListObjects(ctx context.Context, collection string) ([]*storage.Object, error) {
	if _, err := os.Stat(s.collMetaPath(collection)); errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	dir := s.collObjectsDir(collection)
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []*storage.Object
	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		var of objFile
		if err := readJSON(filepath.Join(dir, ent.Name()), &of); err != nil {
			s.logger.Warn().Err(err).Str("file", ent.Name()).Msg("skipping unreadable object")
			continue
		}
		out = append(out, of.toObject())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
