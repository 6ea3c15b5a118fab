package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sonroyaalmerol/davsync/internal/storage"
)

func (s *Store) CreateCollection(ctx context.Context, c *storage.Collection) error {
	if c.Path == "" {
		return errors.New("collection path required")
	}
	now := time.Now().UTC()
	ctag := storage.NewCTag(c.Path, now)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (path, kind, display_name, ctag, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Path, c.Kind, c.DisplayName, ctag, now.UnixNano(), now.UnixNano())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return storage.ErrExists
		}
		return err
	}
	c.CTag = ctag
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *Store) GetCollection(ctx context.Context, path string) (*storage.Collection, error) {
	var (
		c                storage.Collection
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT path, kind, display_name, ctag, created_at, updated_at
		FROM collections WHERE path = ?`, path).
		Scan(&c.Path, &c.Kind, &c.DisplayName, &c.CTag, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return &c, nil
}

func (s *Store) UpdateCollection(ctx context.Context, c *storage.Collection) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE collections
		SET display_name = ?, kind = CASE WHEN ? = '' THEN kind ELSE ? END, ctag = ?, updated_at = ?
		WHERE path = ?`,
		c.DisplayName, c.Kind, c.Kind, storage.NewCTag(c.Path, now), now.UnixNano(), c.Path)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) DeleteCollection(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE path = ?`, path)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// touch bumps the CTag of a collection inside a write transaction.
func touch(ctx context.Context, tx *sql.Tx, path string) error {
	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`UPDATE collections SET ctag = ?, updated_at = ? WHERE path = ?`,
		storage.NewCTag(path, now), now.UnixNano(), path)
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
