package dav

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/sonroyaalmerol/davsync/internal/dav/common"
	"github.com/sonroyaalmerol/davsync/internal/storage"
)

func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	root := struct {
		XMLName xml.Name
	}{}
	if err := xml.Unmarshal(body, &root); err != nil {
		http.Error(w, "bad xml", http.StatusBadRequest)
		return
	}

	coll, name, ok := h.target(r.Context(), r.URL.Path)
	if !ok || name != "" {
		http.Error(w, "REPORT on a collection only", http.StatusBadRequest)
		return
	}
	if !h.allowed(w, r, coll, false) {
		return
	}

	switch root.XMLName.Space + " " + root.XMLName.Local {
	case common.NSCalDAV + " calendar-multiget", common.NSCardDAV + " addressbook-multiget":
		var mg common.Multiget
		if err := xml.Unmarshal(body, &mg); err != nil {
			http.Error(w, "bad xml", http.StatusBadRequest)
			return
		}
		h.reportMultiget(w, r, mg)
	case common.NSCalDAV + " calendar-query", common.NSCardDAV + " addressbook-query":
		h.reportQuery(w, r, coll)
	default:
		http.Error(w, "unsupported REPORT", http.StatusBadRequest)
	}
}

// reportMultiget answers each href on its own: 200 with data, or 404.
func (h *Handlers) reportMultiget(w http.ResponseWriter, r *http.Request, mg common.Multiget) {
	ms := common.MultiStatus{}
	for _, raw := range mg.Hrefs {
		p := raw
		if u, err := url.Parse(raw); err == nil {
			p = u.Path
		}
		rel, ok := h.relPath(p)
		coll, name := splitPath(rel)
		if !ok || name == "" {
			ms.Responses = append(ms.Responses, common.Response{Href: raw, Status: common.Status(http.StatusNotFound)})
			continue
		}
		obj, err := h.store.GetObject(r.Context(), coll, name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			ms.Responses = append(ms.Responses, common.Response{Href: raw, Status: common.Status(http.StatusNotFound)})
		case err != nil:
			h.storageError(w, err, "multiget")
			return
		default:
			ms.Responses = append(ms.Responses, h.objectResponse(obj, true))
		}
	}
	common.WriteMultiStatus(w, ms)
}

// reportQuery returns every member with its data. Filters are not evaluated.
func (h *Handlers) reportQuery(w http.ResponseWriter, r *http.Request, coll string) {
	objs, err := h.store.ListObjects(r.Context(), coll)
	if err != nil {
		h.storageError(w, err, "query")
		return
	}
	ms := common.MultiStatus{}
	for _, o := range objs {
		ms.Responses = append(ms.Responses, h.objectResponse(o, true))
	}
	common.WriteMultiStatus(w, ms)
}
