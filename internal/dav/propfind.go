package dav

import (
	"io"
	"net/http"
	"strings"

	"github.com/sonroyaalmerol/davsync/internal/dav/common"
	"github.com/sonroyaalmerol/davsync/internal/storage"
)

// HandlePropfind answers with every known property. The request body only
// needs to be well-formed enough to read; its prop selection is not honoured.
func (h *Handlers) HandlePropfind(w http.ResponseWriter, r *http.Request) {
	depth := r.Header.Get("Depth")
	if depth == "" {
		depth = "1"
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(r.Body, 1<<20)); err != nil {
		h.logger.Error().Err(err).Msg("failed to read PROPFIND body")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	coll, name, ok := h.target(r.Context(), r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !h.allowed(w, r, coll, false) {
		return
	}

	if name != "" {
		obj, err := h.store.GetObject(r.Context(), coll, name)
		if err != nil {
			h.storageError(w, err, "get object")
			return
		}
		common.WriteMultiStatus(w, common.MultiStatus{
			Responses: []common.Response{h.objectResponse(obj, false)},
		})
		return
	}

	c, err := h.loadCollection(r.Context(), coll)
	if err != nil {
		h.storageError(w, err, "load collection")
		return
	}
	if c == nil {
		if coll != "/" {
			http.NotFound(w, r)
			return
		}
		c = &storage.Collection{Path: "/"}
	}

	ms := common.MultiStatus{Responses: []common.Response{h.collectionResponse(c)}}
	if depth != "0" && c.CTag != "" {
		objs, err := h.store.ListObjects(r.Context(), coll)
		if err != nil {
			h.storageError(w, err, "list objects")
			return
		}
		for _, o := range objs {
			ms.Responses = append(ms.Responses, h.objectResponse(o, false))
		}
	}
	common.WriteMultiStatus(w, ms)
}

func (h *Handlers) collectionResponse(c *storage.Collection) common.Response {
	prop := common.Prop{
		ResourceType: resourceTypeFor(c.Kind),
		GetCTag:      c.CTag,
	}
	if c.DisplayName != "" {
		name := c.DisplayName
		prop.DisplayName = &name
	}
	if !c.UpdatedAt.IsZero() {
		prop.GetLastModified = c.UpdatedAt.UTC().Format(http.TimeFormat)
	}
	return common.Response{
		Href:     h.href(c.Path),
		PropStat: []common.PropStat{{Prop: prop, Status: common.Status(http.StatusOK)}},
	}
}

// objectResponse describes an item, with its data when withData is set.
func (h *Handlers) objectResponse(o *storage.Object, withData bool) common.Response {
	prop := common.Prop{
		ResourceType:   &common.ResourceType{},
		GetETag:        `"` + o.ETag + `"`,
		GetContentType: o.ContentType,
	}
	if !o.UpdatedAt.IsZero() {
		prop.GetLastModified = o.UpdatedAt.UTC().Format(http.TimeFormat)
	}
	if withData {
		switch {
		case strings.HasPrefix(o.ContentType, "text/calendar"):
			prop.CalendarData = string(o.Data)
		case strings.HasPrefix(o.ContentType, "text/vcard"):
			prop.AddressData = string(o.Data)
		}
	}
	return common.Response{
		Href:     h.href(o.Collection + o.Name),
		PropStat: []common.PropStat{{Prop: prop, Status: common.Status(http.StatusOK)}},
	}
}
