package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Collection kinds.
const (
	KindPlain       = ""
	KindCalendar    = "calendar"
	KindAddressbook = "addressbook"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrExists             = errors.New("already exists")
	ErrPreconditionFailed = errors.New("etag mismatch")
)

type Collection struct {
	Path        string // absolute, with trailing slash
	Kind        string
	DisplayName string
	CTag        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Object struct {
	Collection  string
	Name        string
	ETag        string
	Data        []byte
	ContentType string
	UpdatedAt   time.Time
}

// Precondition inspects the stored version of an object, nil when absent,
// and reports whether a write may replace it.
type Precondition func(current *Object) bool

type Store interface {
	Close()
	// Collections
	CreateCollection(ctx context.Context, c *Collection) error
	GetCollection(ctx context.Context, path string) (*Collection, error)
	UpdateCollection(ctx context.Context, c *Collection) error
	DeleteCollection(ctx context.Context, path string) error

	// Objects
	GetObject(ctx context.Context, collection, name string) (*Object, error)
	// PutObject fails with ErrPreconditionFailed when check rejects the
	// stored version. A nil check always writes.
	PutObject(ctx context.Context, obj *Object, check Precondition) error
	DeleteObject(ctx context.Context, collection, name, etag string) error
	ListObjects(ctx context.Context, collection string) ([]*Object, error)
}

// ETag derives the entity tag of an item from its exact bytes.
func ETag(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// NewCTag derives a collection tag that changes on every write.
func NewCTag(path string, at time.Time) string {
	return strconv.FormatUint(xxhash.Sum64String(path+at.Format(time.RFC3339Nano)), 16)
}
