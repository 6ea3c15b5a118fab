// Package storagetest holds behaviour every storage.Store must show.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/davsync/internal/storage"
)

// Run exercises a store returned fresh by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("Collections", func(t *testing.T) { testCollections(t, open(t)) })
	t.Run("Objects", func(t *testing.T) { testObjects(t, open(t)) })
	t.Run("ConditionalPut", func(t *testing.T) { testConditionalPut(t, open(t)) })
	t.Run("DeleteWithETag", func(t *testing.T) { testDeleteWithETag(t, open(t)) })
	t.Run("DeleteCollectionCascades", func(t *testing.T) { testDeleteCollection(t, open(t)) })
}

func testCollections(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetCollection(ctx, "/bob/cal/")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	c := &storage.Collection{Path: "/bob/cal/", Kind: storage.KindCalendar, DisplayName: "Work"}
	require.NoError(t, s.CreateCollection(ctx, c))
	assert.NotEmpty(t, c.CTag)
	assert.ErrorIs(t, s.CreateCollection(ctx, &storage.Collection{Path: "/bob/cal/"}), storage.ErrExists)

	got, err := s.GetCollection(ctx, "/bob/cal/")
	require.NoError(t, err)
	assert.Equal(t, storage.KindCalendar, got.Kind)
	assert.Equal(t, "Work", got.DisplayName)

	got.DisplayName = "Home"
	got.Kind = ""
	require.NoError(t, s.UpdateCollection(ctx, got))
	again, err := s.GetCollection(ctx, "/bob/cal/")
	require.NoError(t, err)
	assert.Equal(t, "Home", again.DisplayName)
	assert.Equal(t, storage.KindCalendar, again.Kind)
	assert.NotEqual(t, c.CTag, again.CTag)

	assert.ErrorIs(t, s.UpdateCollection(ctx, &storage.Collection{Path: "/nope/"}), storage.ErrNotFound)
}

func testObjects(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Path: "/c/", Kind: storage.KindAddressbook}))

	_, err := s.ListObjects(ctx, "/missing/")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	objs, err := s.ListObjects(ctx, "/c/")
	require.NoError(t, err)
	assert.Empty(t, objs)

	data := []byte("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:B\xc3\xa4r\r\nEND:VCARD\r\n")
	for _, name := range []string{"b.vcf", "a.vcf"} {
		obj := &storage.Object{Collection: "/c/", Name: name, Data: data, ContentType: "text/vcard"}
		require.NoError(t, s.PutObject(ctx, obj, nil))
		assert.Equal(t, storage.ETag(data), obj.ETag)
	}

	got, err := s.GetObject(ctx, "/c/", "a.vcf")
	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
	assert.Equal(t, "text/vcard", got.ContentType)
	assert.False(t, got.UpdatedAt.IsZero())

	objs, err = s.ListObjects(ctx, "/c/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "a.vcf", objs[0].Name)
	assert.Equal(t, "b.vcf", objs[1].Name)

	before, err := s.GetCollection(ctx, "/c/")
	require.NoError(t, err)
	changed := []byte("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:X\r\nEND:VCARD\r\n")
	require.NoError(t, s.PutObject(ctx, &storage.Object{Collection: "/c/", Name: "a.vcf", Data: changed, ContentType: "text/vcard"}, nil))
	got, err = s.GetObject(ctx, "/c/", "a.vcf")
	require.NoError(t, err)
	assert.Equal(t, changed, got.Data)
	after, err := s.GetCollection(ctx, "/c/")
	require.NoError(t, err)
	assert.NotEqual(t, before.CTag, after.CTag)

	err = s.PutObject(ctx, &storage.Object{Collection: "/missing/", Name: "x.vcf", Data: data}, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetObject(ctx, "/c/", "zzz.vcf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testConditionalPut(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Path: "/c/"}))
	absent := func(cur *storage.Object) bool { return cur == nil }

	first := &storage.Object{Collection: "/c/", Name: "x.ics", Data: []byte("one")}
	require.NoError(t, s.PutObject(ctx, first, absent))
	err := s.PutObject(ctx, &storage.Object{Collection: "/c/", Name: "x.ics", Data: []byte("two")}, absent)
	assert.ErrorIs(t, err, storage.ErrPreconditionFailed)

	got, err := s.GetObject(ctx, "/c/", "x.ics")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got.Data)

	matches := func(cur *storage.Object) bool { return cur != nil && cur.ETag == first.ETag }
	require.NoError(t, s.PutObject(ctx, &storage.Object{Collection: "/c/", Name: "x.ics", Data: []byte("three")}, matches))
	err = s.PutObject(ctx, &storage.Object{Collection: "/c/", Name: "x.ics", Data: []byte("four")}, matches)
	assert.ErrorIs(t, err, storage.ErrPreconditionFailed)

	// Only one of several racing creates may win.
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obj := &storage.Object{Collection: "/c/", Name: "race.ics", Data: []byte{byte('a' + i)}}
			err := s.PutObject(ctx, obj, absent)
			switch {
			case err == nil:
				created.Add(1)
			case !errors.Is(err, storage.ErrPreconditionFailed):
				t.Errorf("put %d: %v", i, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
}

func testDeleteWithETag(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Path: "/c/"}))
	obj := &storage.Object{Collection: "/c/", Name: "x.ics", Data: []byte("x"), ContentType: "text/calendar"}
	require.NoError(t, s.PutObject(ctx, obj, nil))

	assert.ErrorIs(t, s.DeleteObject(ctx, "/c/", "x.ics", "bogus"), storage.ErrPreconditionFailed)
	require.NoError(t, s.DeleteObject(ctx, "/c/", "x.ics", obj.ETag))
	assert.ErrorIs(t, s.DeleteObject(ctx, "/c/", "x.ics", ""), storage.ErrNotFound)
}

func testDeleteCollection(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Path: "/c/"}))
	require.NoError(t, s.PutObject(ctx, &storage.Object{Collection: "/c/", Name: "x.ics", Data: []byte("x")}, nil))

	require.NoError(t, s.DeleteCollection(ctx, "/c/"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "/c/"), storage.ErrNotFound)
	_, err := s.GetObject(ctx, "/c/", "x.ics")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Recreated collections start empty.
	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Path: "/c/"}))
	objs, err := s.ListObjects(ctx, "/c/")
	require.NoError(t, err)
	assert.Empty(t, objs)
}
