package dav

import (
	"net/http"
)

func (h *Handlers) HandleWellKnown(w http.ResponseWriter, r *http.Request) {
	// Redirect to base path per RFC 6764
	http.Redirect(w, r, h.basePath+"/", http.StatusPermanentRedirect)
}

func (h *Handlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "OPTIONS, PROPFIND, PROPPATCH, REPORT, GET, HEAD, PUT, DELETE, MKCOL, MKCALENDAR")
	w.WriteHeader(http.StatusOK)
}
