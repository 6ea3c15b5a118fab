package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sonroyaalmerol/davsync/internal/storage"
)

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) GetObject(ctx context.Context, collection, name string) (*storage.Object, error) {
	return getObject(ctx, s.db, collection, name)
}

func getObject(ctx context.Context, q rowQuerier, collection, name string) (*storage.Object, error) {
	var (
		o       storage.Object
		updated int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT collection, name, etag, data, content_type, updated_at
		FROM objects WHERE collection = ? AND name = ?`, collection, name).
		Scan(&o.Collection, &o.Name, &o.ETag, &o.Data, &o.ContentType, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.UpdatedAt = time.Unix(0, updated).UTC()
	return &o, nil
}

func (s *Store) PutObject(ctx context.Context, obj *storage.Object, check storage.Precondition) error {
	if obj.Collection == "" || obj.Name == "" {
		return errors.New("collection and name required")
	}
	if obj.ETag == "" {
		obj.ETag = storage.ETag(obj.Data)
	}
	obj.UpdatedAt = time.Now().UTC()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE path = ?`, obj.Collection).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		if check != nil {
			cur, err := getObject(ctx, tx, obj.Collection, obj.Name)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if !check(cur) {
				return storage.ErrPreconditionFailed
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO objects (collection, name, etag, data, content_type, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (collection, name) DO UPDATE SET
				etag = excluded.etag,
				data = excluded.data,
				content_type = excluded.content_type,
				updated_at = excluded.updated_at`,
			obj.Collection, obj.Name, obj.ETag, obj.Data, obj.ContentType, obj.UpdatedAt.UnixNano()); err != nil {
			return err
		}
		return touch(ctx, tx, obj.Collection)
	})
}

func (s *Store) DeleteObject(ctx context.Context, collection, name, etag string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT etag FROM objects WHERE collection = ? AND name = ?`, collection, name).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		if etag != "" && current != etag {
			return storage.ErrPreconditionFailed
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM objects WHERE collection = ? AND name = ?`, collection, name); err != nil {
			return err
		}
		return touch(ctx, tx, collection)
	})
}

func (s *Store) ListObjects(ctx context.Context, collection string) ([]*storage.Object, error) {
	if _, err := s.GetCollection(ctx, collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, name, etag, data, content_type, updated_at
		FROM objects WHERE collection = ? ORDER BY name`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.Object
	for rows.Next() {
		var (
			o       storage.Object
			updated int64
		)
		if err := rows.Scan(&o.Collection, &o.Name, &o.ETag, &o.Data, &o.ContentType, &updated); err != nil {
			return nil, err
		}
		o.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
