package filestore

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/storage"
	"github.com/sonroyaalmerol/davsync/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(t.TempDir(), zerolog.New(zerolog.NewTestWriter(t)))
		require.NoError(t, err)
		t.Cleanup(s.Close)
		return s
	})
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("", zerolog.Nop())
	require.Error(t, err)
}

func TestNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(t.Context(), &storage.Collection{Path: "/c/"}))
	require.NoError(t, s.PutObject(t.Context(), &storage.Object{Collection: "/c/", Name: "a.ics", Data: []byte("a")}, nil))

	entries, err := os.ReadDir(s.collObjectsDir("/c/"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.ics.json", entries[0].Name())
}
