package davclient

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrAlreadyExisting = errors.New("item already exists")
	ErrWrongEtag       = errors.New("etag mismatch")
	ErrUnsupportedMeta = errors.New("unsupported metadata key")
)

// Error is returned by every Storage operation.
type Error struct {
	Op   string
	Href string
	Err  error
}

func (e *Error) Error() string {
	if e.Href == "" {
		return fmt.Sprintf("davclient %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("davclient %s %s: %v", e.Op, e.Href, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
