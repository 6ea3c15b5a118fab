package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/davsync/internal/auth"
	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/dav"
	"github.com/sonroyaalmerol/davsync/internal/metrics"
)

const capabilities = "1, 3, calendar-access, addressbook"

func New(cfg *config.Config, h *dav.Handlers, logger zerolog.Logger) http.Handler {
	r := &Router{
		config:   cfg,
		handlers: h,
		logger:   logger.With().Str("component", "router").Logger(),
	}
	return r.setupRoutes()
}

func (r *Router) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/caldav", r.handlers.HandleWellKnown)
	mux.HandleFunc("/.well-known/carddav", r.handlers.HandleWellKnown)
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	base := r.getBasePath()
	mux.HandleFunc(base, r.handleDAVRequest)
	if base != "/" {
		mux.HandleFunc(strings.TrimSuffix(base, "/"), r.handleDAVRequest)
	}
	return mux
}

func (r *Router) getBasePath() string {
	base := r.config.HTTP.BasePath
	if base == "" || base[0] != '/' {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleDAVRequest(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("DAV", capabilities)

	// OPTIONS is public for capability discovery
	if req.Method == http.MethodOptions {
		r.handlers.HandleOptions(w, req)
		return
	}

	p, err := auth.ParseBasic(req.Header.Get("Authorization"))
	if err != nil {
		r.logAttempt(req, err)
		w.Header().Set("WWW-Authenticate", `Basic realm="DAV", charset="UTF-8"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	r.routeDAVMethod(w, req)
}

func (r *Router) routeDAVMethod(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	switch req.Method {
	case "PROPFIND":
		r.handlers.HandlePropfind(rec, req)
	case "REPORT":
		r.handlers.HandleReport(rec, req)
	case http.MethodGet, http.MethodHead:
		r.handlers.HandleGet(rec, req)
	case http.MethodPut:
		r.handlers.HandlePut(rec, req)
	case http.MethodDelete:
		r.handlers.HandleDelete(rec, req)
	case "MKCOL", "MKCALENDAR":
		r.handlers.HandleMkcol(rec, req)
	case "PROPPATCH":
		r.handlers.HandleProppatch(rec, req)
	default:
		http.Error(rec, "method not allowed", http.StatusMethodNotAllowed)
	}

	dur := time.Since(start)
	status := statusOrDefault(rec.status)
	metrics.Requests.WithLabelValues(req.Method, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(req.Method).Observe(dur.Seconds())

	var ev *zerolog.Event
	switch req.Method {
	case "PROPFIND", "REPORT", http.MethodGet, http.MethodHead:
		ev = r.logger.Debug()
	default:
		ev = r.logger.Info()
	}
	ev = ev.
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", status).
		Int("bytes", rec.bytes).
		Float64("duration_ms", float64(dur.Microseconds())/1000.0).
		Str("ip", realIP(req)).
		Str("user_agent", req.Header.Get("User-Agent"))

	if p, ok := auth.PrincipalFrom(req.Context()); ok && !p.Anonymous() {
		ev = ev.Str("user", p.UserID)
	}
	ev.Msg("http request")
}

func (r *Router) logAttempt(req *http.Request, authErr error) {
	authz := req.Header.Get("Authorization")
	authType := ""
	if i := strings.IndexByte(authz, ' '); i > 0 {
		authType = strings.ToLower(authz[:i])
	}

	r.logger.Info().
		Bool("auth_success", false).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("ip", realIP(req)).
		Str("user_agent", req.Header.Get("User-Agent")).
		Str("auth_type", authType).
		Err(authErr).
		Msg("auth attempt")
}
