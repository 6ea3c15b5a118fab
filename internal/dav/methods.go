package dav

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sonroyaalmerol/davsync/internal/dav/common"
	"github.com/sonroyaalmerol/davsync/internal/metrics"
	"github.com/sonroyaalmerol/davsync/internal/storage"
	"github.com/sonroyaalmerol/davsync/pkg/ical"
	"github.com/sonroyaalmerol/davsync/pkg/vcard"
)

// HandleGet returns an item exactly as it was stored. HEAD shares the path.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	coll, name, ok := h.target(r.Context(), r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if name == "" {
		http.Error(w, "collection listing via PROPFIND", http.StatusMethodNotAllowed)
		return
	}
	if !h.allowed(w, r, coll, false) {
		return
	}
	obj, err := h.store.GetObject(r.Context(), coll, name)
	if err != nil {
		h.storageError(w, err, "get object")
		return
	}

	// ETag conditional GET
	inm := common.TrimQuotes(r.Header.Get("If-None-Match"))
	if inm != "" && (inm == "*" || inm == obj.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("ETag", `"`+obj.ETag+`"`)
	if !obj.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", obj.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(obj.Data)
}

// HandlePut validates and stores an item, creating its collection when needed.
func (h *Handlers) HandlePut(w http.ResponseWriter, r *http.Request) {
	coll, name, ok := h.target(r.Context(), r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if name == "" {
		http.Error(w, "cannot PUT a collection", http.StatusMethodNotAllowed)
		return
	}
	if !common.SafeSegment(name) {
		http.Error(w, "bad object name", http.StatusBadRequest)
		return
	}
	if !h.allowed(w, r, coll, true) {
		return
	}

	limit := h.cfg.HTTP.MaxItemBytes
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > limit {
		http.Error(w, "item too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	c, err := h.loadCollection(r.Context(), coll)
	if err != nil {
		h.storageError(w, err, "load collection")
		return
	}
	kind := itemKind(name, r.Header.Get("Content-Type"), c)
	comp, status, err := validate(kind, data)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	prev, err := h.store.GetObject(r.Context(), coll, name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.storageError(w, err, "get object")
		return
	}
	if !preconditionsHold(r, prev) {
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
		return
	}

	if c == nil {
		c = &storage.Collection{Path: coll, Kind: kind}
		if err := h.store.CreateCollection(r.Context(), c); err != nil && !errors.Is(err, storage.ErrExists) {
			h.storageError(w, err, "create collection")
			return
		}
		h.forget(coll)
	}

	obj := &storage.Object{
		Collection:  coll,
		Name:        name,
		Data:        data,
		ContentType: contentTypeFor(kind),
		UpdatedAt:   time.Now().UTC(),
	}
	// Rechecked against the stored version atomically with the write.
	existed := prev != nil
	check := func(cur *storage.Object) bool {
		existed = cur != nil
		return preconditionsHold(r, cur)
	}
	if err := h.store.PutObject(r.Context(), obj, check); err != nil {
		h.storageError(w, err, "put object")
		return
	}
	h.forget(coll)
	metrics.ItemsWritten.WithLabelValues(kind).Inc()

	ev := h.logger.Debug().Str("collection", coll).Str("name", name).Str("component", comp)
	if kind == storage.KindAddressbook {
		ev = ev.Str("uid", vcard.UID(data))
	}
	ev.Msg("item stored")

	w.Header().Set("ETag", `"`+obj.ETag+`"`)
	if !existed {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validate checks an item body against its kind and returns the name of its
// main component.
func validate(kind string, data []byte) (string, int, error) {
	switch kind {
	case storage.KindCalendar:
		comp, err := ical.Validate(data)
		if err != nil {
			return "", http.StatusBadRequest, err
		}
		return comp, 0, nil
	case storage.KindAddressbook:
		if err := vcard.ValidateVCard(data); err != nil {
			return "", http.StatusBadRequest, err
		}
		return "VCARD", 0, nil
	default:
		return "", http.StatusUnsupportedMediaType, errors.New("unsupported item type")
	}
}

// preconditionsHold evaluates If-Match and If-None-Match against the current
// item, which is nil when absent.
func preconditionsHold(r *http.Request, cur *storage.Object) bool {
	if im := r.Header.Get("If-Match"); im != "" {
		if cur == nil {
			return false
		}
		tag := common.TrimQuotes(im)
		if tag != "*" && tag != cur.ETag {
			return false
		}
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && cur != nil {
		tag := common.TrimQuotes(inm)
		if tag == "*" || tag == cur.ETag {
			return false
		}
	}
	return true
}

func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	coll, name, ok := h.target(r.Context(), r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !h.allowed(w, r, coll, true) {
		return
	}

	if name == "" {
		if coll == "/" {
			http.Error(w, "cannot delete root", http.StatusForbidden)
			return
		}
		if err := h.store.DeleteCollection(r.Context(), coll); err != nil {
			h.storageError(w, err, "delete collection")
			return
		}
		h.forget(coll)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	etag := ""
	if im := r.Header.Get("If-Match"); im != "" {
		if etag = common.TrimQuotes(im); etag == "*" {
			etag = ""
		}
	}
	if err := h.store.DeleteObject(r.Context(), coll, name, etag); err != nil {
		h.storageError(w, err, "delete object")
		return
	}
	h.forget(coll)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMkcol serves MKCOL and MKCALENDAR. The body may name a resourcetype
// and a displayname.
func (h *Handlers) HandleMkcol(w http.ResponseWriter, r *http.Request) {
	rel, ok := h.relPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	coll := common.CollectionPath(rel)
	if coll == "/" {
		http.Error(w, "root exists", http.StatusMethodNotAllowed)
		return
	}
	if !h.allowed(w, r, coll, true) {
		return
	}

	c := &storage.Collection{Path: coll}
	if r.Method == "MKCALENDAR" {
		c.Kind = storage.KindCalendar
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.HTTP.MaxItemBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var upd common.PropertyUpdate
		if err := xml.Unmarshal(body, &upd); err != nil {
			http.Error(w, "invalid XML", http.StatusBadRequest)
			return
		}
		for _, s := range upd.Set {
			applySetProp(c, s.Prop)
		}
	}

	if err := h.store.CreateCollection(r.Context(), c); err != nil {
		h.storageError(w, err, "create collection")
		return
	}
	h.forget(coll)
	h.logger.Info().Str("path", coll).Str("kind", c.Kind).Msg("collection created")
	w.WriteHeader(http.StatusCreated)
}

func applySetProp(c *storage.Collection, p common.SetProp) {
	if p.DisplayName != nil {
		c.DisplayName = *p.DisplayName
	}
	if rt := p.ResourceType; rt != nil {
		switch {
		case rt.Calendar != nil:
			c.Kind = storage.KindCalendar
		case rt.Addressbook != nil:
			c.Kind = storage.KindAddressbook
		}
	}
}

// HandleProppatch updates the displayname of a collection.
func (h *Handlers) HandleProppatch(w http.ResponseWriter, r *http.Request) {
	coll, name, ok := h.target(r.Context(), r.URL.Path)
	if !ok || name != "" {
		http.Error(w, "only collections carry properties", http.StatusForbidden)
		return
	}
	if !h.allowed(w, r, coll, true) {
		return
	}
	c, err := h.loadCollection(r.Context(), coll)
	if err != nil {
		h.storageError(w, err, "load collection")
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}

	var upd common.PropertyUpdate
	if err := xml.NewDecoder(io.LimitReader(r.Body, h.cfg.HTTP.MaxItemBytes)).Decode(&upd); err != nil {
		http.Error(w, "invalid XML", http.StatusBadRequest)
		return
	}
	next := *c
	var prop common.Prop
	for _, s := range upd.Set {
		if s.Prop.DisplayName != nil {
			next.DisplayName = *s.Prop.DisplayName
			prop.DisplayName = new(string)
		}
	}
	for _, s := range upd.Remove {
		if s.Prop.DisplayName != nil {
			next.DisplayName = ""
			prop.DisplayName = new(string)
		}
	}
	if err := h.store.UpdateCollection(r.Context(), &next); err != nil {
		h.storageError(w, err, "update collection")
		return
	}
	h.forget(coll)

	common.WriteMultiStatus(w, common.MultiStatus{
		Responses: []common.Response{{
			Href:     h.href(coll),
			PropStat: []common.PropStat{{Prop: prop, Status: common.Status(http.StatusOK)}},
		}},
	})
}
