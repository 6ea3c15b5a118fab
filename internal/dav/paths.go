package dav

import (
	"context"
	"path"
	"strings"

	"github.com/sonroyaalmerol/davsync/internal/dav/common"
	"github.com/sonroyaalmerol/davsync/internal/storage"
)

// relPath strips the base path. ok is false outside of it.
func (h *Handlers) relPath(urlPath string) (string, bool) {
	if h.basePath != "" {
		if urlPath != h.basePath && !strings.HasPrefix(urlPath, h.basePath+"/") {
			return "", false
		}
		urlPath = strings.TrimPrefix(urlPath, h.basePath)
	}
	return "/" + strings.TrimLeft(urlPath, "/"), true
}

// splitPath names either a collection (name empty) or an item inside one.
// A trailing slash always means a collection.
func splitPath(p string) (coll, name string) {
	if strings.HasSuffix(p, "/") {
		return common.CollectionPath(p), ""
	}
	dir, file := path.Split(p)
	return common.CollectionPath(dir), file
}

// target resolves a request path. A path without trailing slash that names an
// existing collection resolves to that collection.
func (h *Handlers) target(ctx context.Context, urlPath string) (coll, name string, ok bool) {
	rel, ok := h.relPath(urlPath)
	if !ok {
		return "", "", false
	}
	coll, name = splitPath(rel)
	if name != "" {
		asColl := common.CollectionPath(rel)
		if c, err := h.loadCollection(ctx, asColl); err == nil && c != nil {
			return asColl, "", true
		}
	}
	return coll, name, true
}

// href renders a server-relative path as an escaped href under the base path.
func (h *Handlers) href(p string) string {
	full := common.JoinURL(h.basePath, p)
	if strings.HasSuffix(p, "/") && full != "/" {
		full += "/"
	}
	return common.Href(full)
}

// itemKind decides how an item is validated: by extension, then by declared
// content type, then by the kind of its collection.
func itemKind(name, contentType string, coll *storage.Collection) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".ics":
		return storage.KindCalendar
	case ".vcf":
		return storage.KindAddressbook
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/calendar"):
		return storage.KindCalendar
	case strings.HasPrefix(ct, "text/vcard"), strings.HasPrefix(ct, "text/x-vcard"):
		return storage.KindAddressbook
	}
	if coll != nil {
		return coll.Kind
	}
	return storage.KindPlain
}

func contentTypeFor(kind string) string {
	switch kind {
	case storage.KindCalendar:
		return "text/calendar; charset=utf-8"
	case storage.KindAddressbook:
		return "text/vcard; charset=utf-8"
	}
	return "application/octet-stream"
}

func resourceTypeFor(kind string) *common.ResourceType {
	rt := &common.ResourceType{Collection: &struct{}{}}
	switch kind {
	case storage.KindCalendar:
		rt.Calendar = &struct{}{}
	case storage.KindAddressbook:
		rt.Addressbook = &struct{}{}
	}
	return rt
}
