package davclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

type Kind int

const (
	CalDAV Kind = iota
	CardDAV
)

func (k Kind) String() string {
	if k == CardDAV {
		return "carddav"
	}
	return "caldav"
}

func (k Kind) fileExt() string {
	if k == CardDAV {
		return ".vcf"
	}
	return ".ics"
}

func (k Kind) itemType() string {
	if k == CardDAV {
		return "text/vcard"
	}
	return "text/calendar"
}

type Options struct {
	// URL of the collection.
	URL       string
	Username  string
	Password  string
	UserAgent string
	// Session defaults to an HTTPSession over a fresh http.Client.
	Session Session
	Logger  zerolog.Logger
}

// Storage is a CalDAV or CardDAV collection seen as a set of items.
type Storage struct {
	kind    Kind
	base    *url.URL
	coll    string
	opts    Options
	session Session
	logger  zerolog.Logger
}

func New(kind Kind, opts Options) (*Storage, error) {
	if opts.URL == "" {
		return nil, errors.New("davclient: URL required")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("davclient: parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("davclient: URL %q is not absolute", opts.URL)
	}
	coll := u.Path
	if !strings.HasSuffix(coll, "/") {
		coll += "/"
	}
	if opts.Session == nil {
		opts.Session = NewHTTPSession(nil)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "davsync"
	}
	return &Storage{
		kind:    kind,
		base:    &url.URL{Scheme: u.Scheme, Host: u.Host},
		coll:    coll,
		opts:    opts,
		session: opts.Session,
		logger:  opts.Logger.With().Str("component", "davclient").Str("kind", kind.String()).Logger(),
	}, nil
}

func NewCalDAV(opts Options) (*Storage, error)  { return New(CalDAV, opts) }
func NewCardDAV(opts Options) (*Storage, error) { return New(CardDAV, opts) }

func (s *Storage) Kind() Kind { return s.kind }

// Collection is the path of the collection, with a trailing slash.
func (s *Storage) Collection() string { return s.coll }

func (s *Storage) urlFor(href string) string {
	u := *s.base
	u.Path = href
	return u.String()
}

// do sends one request. Transport failures come back as *Error.
func (s *Storage) do(ctx context.Context, op, method, href string, body []byte, header http.Header) (*Response, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("User-Agent", s.opts.UserAgent)
	if s.opts.Username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(s.opts.Username + ":" + s.opts.Password))
		header.Set("Authorization", "Basic "+creds)
	}

	target := s.urlFor(href)
	resp, err := s.session.Request(ctx, method, target, body, header)
	if err != nil {
		s.logger.Debug().Err(err).Str("method", method).Str("url", target).Msg("request failed")
		return nil, &Error{Op: op, Href: href, Err: err}
	}
	s.logger.Debug().Str("method", method).Str("url", target).Int("status", resp.StatusCode).Msg("dav request")
	return resp, nil
}

// fail turns an error status into *Error, mapping known codes to sentinels.
// It returns nil for successful responses.
func fail(op, href string, resp *Response, codes map[int]error) error {
	herr := resp.RaiseForStatus()
	if herr == nil {
		return nil
	}
	if sentinel, ok := codes[resp.StatusCode]; ok {
		return &Error{Op: op, Href: href, Err: fmt.Errorf("%w: %w", sentinel, herr)}
	}
	return &Error{Op: op, Href: href, Err: herr}
}
