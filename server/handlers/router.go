package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/libcalsched/server/auth"
	"github.com/cyp0633/libcalsched/server/schedule"
)

const (
	// HTTP headers
	HeaderContentType = "Content-Type"

	// MIME types
	MimeTypeJSON     = "application/json"
	MimeTypeCalendar = "text/calendar; charset=utf-8"
	MimeTypeXCal     = "application/calendar+xml; charset=utf-8"

	// DefaultUpcomingLimit applies when /events/upcoming has no limit.
	DefaultUpcomingLimit = 10

	maxBodyBytes = 10 << 20
)

// Router serves the scheduling REST API
type Router struct {
	service      *schedule.Service
	mux          *http.ServeMux
	handler      http.Handler
	logger       *slog.Logger
	now          func() time.Time
	calendarName string

	authenticator auth.Authenticator
	realm         string
}

// Option configures a Router
type Option func(*Router)

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for "now" in queries.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// WithCalendarName sets the name advertised by exported feeds.
func WithCalendarName(name string) Option {
	return func(r *Router) {
		r.calendarName = name
	}
}

// WithAuthenticator requires HTTP Basic authentication on every route
// except /healthz.
func WithAuthenticator(a auth.Authenticator, realm string) Option {
	return func(r *Router) {
		r.authenticator = a
		r.realm = realm
	}
}

// NewRouter creates a router over service
func NewRouter(service *schedule.Service, opts ...Option) *Router {
	r := &Router{
		service:      service,
		mux:          http.NewServeMux(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		calendarName: "Schedule",
	}
	for _, opt := range opts {
		opt(r)
	}

	// Literal segments win over {id}, so /events/stats never reaches handleGet.
	r.mux.HandleFunc("GET /healthz", r.handleHealth)

	r.mux.HandleFunc("POST /events", r.handleCreate)
	r.mux.HandleFunc("GET /events", r.handleList)
	r.mux.HandleFunc("DELETE /events", r.handleBulkDelete)
	r.mux.HandleFunc("POST /events/bulk", r.handleBulkCreate)
	r.mux.HandleFunc("GET /events/stats", r.handleStats)
	r.mux.HandleFunc("GET /events/upcoming", r.handleUpcoming)
	r.mux.HandleFunc("GET /events/today", r.handleToday)
	r.mux.HandleFunc("GET /events/search", r.handleSearch)
	r.mux.HandleFunc("GET /events/{id}", r.handleGet)
	r.mux.HandleFunc("PUT /events/{id}", r.handleUpdate)
	r.mux.HandleFunc("DELETE /events/{id}", r.handleDelete)

	r.mux.HandleFunc("GET /calendar.ics", r.handleICS)
	r.mux.HandleFunc("GET /calendar.xml", r.handleXCal)
	r.mux.HandleFunc("GET /calendar.xlsx", r.handleXLSX)
	r.mux.HandleFunc("POST /calendar/import", r.handleImport)

	r.handler = r.mux
	if r.authenticator != nil {
		r.handler = auth.Middleware(r.authenticator, r.realm)(r.mux)
	}

	return r
}

// statusRecorder captures the response status for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.logger.Info("received request",
		"method", req.Method,
		"path", req.URL.Path,
		"remote_addr", req.RemoteAddr)

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.handler.ServeHTTP(rec, req)

	r.logger.Debug("request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", rec.status,
		"duration", time.Since(start))
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	r.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
