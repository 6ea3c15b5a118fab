package acl

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/davsync/internal/config"
)

type Effective struct {
	Read  bool
	Write bool
}

func (e Effective) CanRead() bool  { return e.Read }
func (e Effective) CanWrite() bool { return e.Write }

type Provider interface {
	// Effective privileges of user on the resource at path. An empty user is
	// an anonymous request.
	Effective(ctx context.Context, user, path string) (Effective, error)
}

// New returns the provider for a rights policy name.
func New(kind string) (Provider, error) {
	switch kind {
	case config.RightsNone, "":
		return None{}, nil
	case config.RightsOwnerOnly:
		return OwnerOnly{}, nil
	case config.RightsReadOnly:
		return ReadOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown rights type: %s", kind)
	}
}

// None grants everything to everyone.
type None struct{}

func (None) Effective(context.Context, string, string) (Effective, error) {
	return Effective{Read: true, Write: true}, nil
}

// OwnerOnly grants a user full access below /<user>/ and nothing else.
type OwnerOnly struct{}

func (OwnerOnly) Effective(_ context.Context, user, path string) (Effective, error) {
	if user == "" {
		return Effective{}, nil
	}
	first := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if first != user {
		return Effective{}, nil
	}
	return Effective{Read: true, Write: true}, nil
}

// ReadOnly grants read access to everyone and write access to no one.
type ReadOnly struct{}

func (ReadOnly) Effective(context.Context, string, string) (Effective, error) {
	return Effective{Read: true}, nil
}
