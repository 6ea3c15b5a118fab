package davclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Session performs one HTTP exchange. Storage sends every request through
// it, so tests can route calls into an in-process handler instead of a socket.
type Session interface {
	Request(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error)
}

// HTTPSession is the network Session backed by an *http.Client.
type HTTPSession struct {
	client *http.Client
}

func NewHTTPSession(client *http.Client) *HTTPSession {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSession{client: client}
}

func (s *HTTPSession) Request(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return NewResponse(resp.StatusCode, content, resp.Header), nil
}
