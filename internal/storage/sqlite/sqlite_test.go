package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/storage"
	"github.com/sonroyaalmerol/davsync/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(filepath.Join(t.TempDir(), "db", "davsync.db"), zerolog.New(zerolog.NewTestWriter(t)))
		require.NoError(t, err)
		t.Cleanup(s.Close)
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "davsync.db")
	s, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(t.Context(), &storage.Collection{Path: "/c/", DisplayName: "Keep"}))
	s.Close()

	// Migrations are already applied; opening again must not fail.
	s, err = New(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	c, err := s.GetCollection(t.Context(), "/c/")
	require.NoError(t, err)
	require.Equal(t, "Keep", c.DisplayName)
}
