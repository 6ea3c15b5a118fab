package davclient

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Listing is one member of the collection.
type Listing struct {
	Href string
	ETag string
}

// Fetched is an item returned by GetMulti.
type Fetched struct {
	Href string
	Item Item
	ETag string
}

// List returns the items of the collection. A missing collection is empty.
func (s *Storage) List(ctx context.Context) ([]Listing, error) {
	const op = "list"
	resp, err := s.do(ctx, op, "PROPFIND", s.coll, []byte(listBody), http.Header{
		"Depth":        {"1"},
		"Content-Type": {"application/xml; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := fail(op, s.coll, resp, nil); err != nil {
		return nil, err
	}

	ms, err := decodeMultistatus(resp.Content)
	if err != nil {
		return nil, &Error{Op: op, Href: s.coll, Err: err}
	}
	var out []Listing
	for _, r := range ms.Responses {
		href := normalizeHref(r.Href)
		if href == s.coll || strings.HasSuffix(href, "/") {
			continue
		}
		prop, ok := r.ok()
		if !ok || prop.ResourceType.Collection != nil {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(prop.ContentType), s.kind.itemType()) {
			continue
		}
		out = append(out, Listing{Href: href, ETag: trimETag(prop.ETag)})
	}
	return out, nil
}

func (s *Storage) Get(ctx context.Context, href string) (Item, string, error) {
	const op = "get"
	resp, err := s.do(ctx, op, http.MethodGet, href, nil, nil)
	if err != nil {
		return Item{}, "", err
	}
	if err := fail(op, href, resp, map[int]error{http.StatusNotFound: ErrNotFound}); err != nil {
		return Item{}, "", err
	}
	return Item{Raw: string(resp.Content)}, trimETag(resp.Header.Get("ETag")), nil
}

// GetMulti fetches several items with one multiget REPORT, in the order of
// hrefs. Any missing href fails the whole call with ErrNotFound.
func (s *Storage) GetMulti(ctx context.Context, hrefs []string) ([]Fetched, error) {
	const op = "get-multi"
	if len(hrefs) == 0 {
		return nil, nil
	}
	escaped := make([]string, len(hrefs))
	for i, h := range hrefs {
		escaped[i] = (&url.URL{Path: h}).EscapedPath()
	}
	resp, err := s.do(ctx, op, "REPORT", s.coll, multigetBody(s.kind, escaped), http.Header{
		"Depth":        {"1"},
		"Content-Type": {"application/xml; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if err := fail(op, s.coll, resp, map[int]error{http.StatusNotFound: ErrNotFound}); err != nil {
		return nil, err
	}
	ms, err := decodeMultistatus(resp.Content)
	if err != nil {
		return nil, &Error{Op: op, Href: s.coll, Err: err}
	}

	found := make(map[string]Fetched, len(ms.Responses))
	for _, r := range ms.Responses {
		href := normalizeHref(r.Href)
		prop, ok := r.ok()
		if !ok {
			continue
		}
		data := prop.CalendarData
		if s.kind == CardDAV {
			data = prop.AddressData
		}
		found[href] = Fetched{Href: href, Item: Item{Raw: data}, ETag: trimETag(prop.ETag)}
	}

	out := make([]Fetched, 0, len(hrefs))
	for _, h := range hrefs {
		f, ok := found[normalizeHref(h)]
		if !ok {
			return nil, &Error{Op: op, Href: h, Err: ErrNotFound}
		}
		out = append(out, f)
	}
	return out, nil
}

// Upload stores a new item and returns its href and etag.
func (s *Storage) Upload(ctx context.Context, item Item) (string, string, error) {
	const op = "upload"
	name := item.Ident()
	if !safeIdent(name) {
		name = uuid.NewString()
	}
	href := s.coll + name + s.kind.fileExt()

	etag, err := s.put(ctx, op, href, item, http.Header{"If-None-Match": {"*"}},
		map[int]error{http.StatusPreconditionFailed: ErrAlreadyExisting})
	if err != nil {
		return "", "", err
	}
	return href, etag, nil
}

// Update replaces the item at href if its etag still matches.
func (s *Storage) Update(ctx context.Context, href string, item Item, etag string) (string, error) {
	return s.put(ctx, "update", href, item, http.Header{"If-Match": {quoteETag(etag)}},
		map[int]error{
			http.StatusPreconditionFailed: ErrWrongEtag,
			http.StatusNotFound:           ErrNotFound,
		})
}

func (s *Storage) put(ctx context.Context, op, href string, item Item, header http.Header, codes map[int]error) (string, error) {
	header.Set("Content-Type", s.kind.itemType()+"; charset=utf-8")
	resp, err := s.do(ctx, op, http.MethodPut, href, []byte(item.Raw), header)
	if err != nil {
		return "", err
	}
	if err := fail(op, href, resp, codes); err != nil {
		return "", err
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		return trimETag(etag), nil
	}
	// Some servers omit the ETag on PUT.
	_, etag, err := s.Get(ctx, href)
	return etag, err
}

func (s *Storage) Delete(ctx context.Context, href, etag string) error {
	const op = "delete"
	resp, err := s.do(ctx, op, http.MethodDelete, href, nil, http.Header{"If-Match": {quoteETag(etag)}})
	if err != nil {
		return err
	}
	return fail(op, href, resp, map[int]error{
		http.StatusPreconditionFailed: ErrWrongEtag,
		http.StatusNotFound:           ErrNotFound,
	})
}

// Create makes the collection: MKCALENDAR for CalDAV, an extended MKCOL
// for CardDAV.
func (s *Storage) Create(ctx context.Context) error {
	const op = "create"
	method := "MKCALENDAR"
	header := http.Header{}
	if s.kind == CardDAV {
		method = "MKCOL"
		header.Set("Content-Type", "application/xml; charset=utf-8")
	}
	resp, err := s.do(ctx, op, method, s.coll, mkcolBody(s.kind), header)
	if err != nil {
		return err
	}
	return fail(op, s.coll, resp, map[int]error{http.StatusMethodNotAllowed: ErrAlreadyExisting})
}

// GetMeta reads collection metadata. Only "displayname" is known.
func (s *Storage) GetMeta(ctx context.Context, key string) (string, error) {
	const op = "get-meta"
	if key != "displayname" {
		return "", &Error{Op: op, Href: s.coll, Err: fmt.Errorf("%w: %s", ErrUnsupportedMeta, key)}
	}
	resp, err := s.do(ctx, op, "PROPFIND", s.coll, []byte(displayNameBody), http.Header{
		"Depth":        {"0"},
		"Content-Type": {"application/xml; charset=utf-8"},
	})
	if err != nil {
		return "", err
	}
	if err := fail(op, s.coll, resp, map[int]error{http.StatusNotFound: ErrNotFound}); err != nil {
		return "", err
	}
	ms, err := decodeMultistatus(resp.Content)
	if err != nil {
		return "", &Error{Op: op, Href: s.coll, Err: err}
	}
	for _, r := range ms.Responses {
		if normalizeHref(r.Href) != s.coll {
			continue
		}
		if prop, ok := r.ok(); ok && prop.DisplayName != nil {
			return strings.TrimSpace(*prop.DisplayName), nil
		}
	}
	return "", nil
}

// SetMeta writes collection metadata. An empty value removes it.
func (s *Storage) SetMeta(ctx context.Context, key, value string) error {
	const op = "set-meta"
	if key != "displayname" {
		return &Error{Op: op, Href: s.coll, Err: fmt.Errorf("%w: %s", ErrUnsupportedMeta, key)}
	}
	resp, err := s.do(ctx, op, "PROPPATCH", s.coll, setDisplayNameBody(value), http.Header{
		"Content-Type": {"application/xml; charset=utf-8"},
	})
	if err != nil {
		return err
	}
	return fail(op, s.coll, resp, map[int]error{http.StatusNotFound: ErrNotFound})
}

func decodeMultistatus(b []byte) (*multistatus, error) {
	var ms multistatus
	if err := xml.Unmarshal(b, &ms); err != nil {
		return nil, fmt.Errorf("decode multistatus: %w", err)
	}
	return &ms, nil
}

// normalizeHref reduces an href, absolute or escaped, to a clean path.
func normalizeHref(raw string) string {
	p := strings.TrimSpace(raw)
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean("/" + p)
	if trailing && p != "/" {
		p += "/"
	}
	return p
}

func trimETag(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	return strings.Trim(s, `"`)
}

func quoteETag(s string) string {
	return `"` + s + `"`
}
