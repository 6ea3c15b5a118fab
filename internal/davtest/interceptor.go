package davtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"

	"github.com/sonroyaalmerol/davsync/internal/davclient"
)

var (
	ErrAlreadyInstalled = errors.New("davtest: an interceptor is already installed")
	ErrRemoved          = errors.New("davtest: interceptor removed")
)

var active atomic.Pointer[Interceptor]

// Interceptor is a davclient.Session that serves every request with app.
type Interceptor struct {
	app     http.Handler
	prefix  string
	removed atomic.Bool
}

var _ davclient.Session = (*Interceptor)(nil)

// Install registers a new interceptor. Only one may be installed at a time.
// Requests whose URL has no path go to prefix.
func Install(app http.Handler, prefix string) (*Interceptor, error) {
	ic := &Interceptor{app: app, prefix: prefix}
	if !active.CompareAndSwap(nil, ic) {
		return nil, ErrAlreadyInstalled
	}
	return ic, nil
}

// Installed reports whether any interceptor is currently installed.
func Installed() bool {
	return active.Load() != nil
}

// Remove uninstalls the interceptor. Later calls do nothing.
func (ic *Interceptor) Remove() {
	if ic.removed.CompareAndSwap(false, true) {
		active.CompareAndSwap(ic, nil)
	}
}

func (ic *Interceptor) Request(ctx context.Context, method, rawURL string, body []byte, header http.Header) (*davclient.Response, error) {
	if ic.removed.Load() {
		return nil, ErrRemoved
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("davtest: parse %q: %w", rawURL, err)
	}

	target := u.EscapedPath()
	if target == "" {
		// A bare host goes to the collection under test.
		target = ic.prefix
	}
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd).WithContext(ctx)
	if u.Host != "" {
		req.Host = u.Host
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	ic.app.ServeHTTP(rec, req)
	return adaptResponse(rec), nil
}
