package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/pacprobe/internal/storage"
)

// Store defines the storage queries the server needs.
type Store interface {
	LatestProbe(ctx context.Context, endpoint string) (*storage.Probe, error)
	History(ctx context.Context, endpoint string, limit, offset int) ([]storage.Probe, int, error)
	SuccessRate(ctx context.Context, endpoint string, last int) (float64, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store    Store
	endpoint string
	interval time.Duration
	router   chi.Router
	logger   *slog.Logger
}

// New creates a new Server for the probed endpoint and registers all routes.
func New(store Store, endpoint string, interval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		endpoint: endpoint,
		interval: interval,
		router:   chi.NewRouter(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/probe", s.handleLatest)
	r.Get("/api/probe/history", s.handleHistory)
}

// --- Response helpers ---

// envelope wraps every API body so clients can branch on a single
// "error" field.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, envelope{Error: msg})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type probeDetail struct {
	Endpoint    string     `json:"endpoint"`
	Interval    string     `json:"interval"`
	Outcome     string     `json:"outcome"`
	StatusCode  int        `json:"status_code"`
	ResponseMs  int64      `json:"response_ms"`
	Error       string     `json:"error"`
	SuccessPct  float64    `json:"success_percent"`
	LastChecked *time.Time `json:"last_checked"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestProbe(r.Context(), s.endpoint)
	if err != nil {
		s.logger.Error("LatestProbe", "endpoint", s.endpoint, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	d := probeDetail{
		Endpoint: s.endpoint,
		Interval: s.interval.String(),
		Outcome:  "unknown",
	}
	if latest != nil {
		d.Outcome = latest.Outcome
		d.StatusCode = latest.StatusCode
		d.ResponseMs = latest.ResponseMs
		d.Error = latest.Error
		t := latest.CheckedAt
		d.LastChecked = &t
		pct, err := s.store.SuccessRate(r.Context(), s.endpoint, 100)
		if err != nil {
			s.logger.Warn("SuccessRate", "endpoint", s.endpoint, "error", err)
		}
		d.SuccessPct = pct
	}

	respond(w, http.StatusOK, envelope{Data: d})
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// queryInt parses a non-negative query value, falling back to def when
// the parameter is absent.
func queryInt(v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type historyResponse struct {
	Checks []storage.Probe `json:"checks"`
	Total  int             `json:"total"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := queryInt(q.Get("limit"), defaultHistoryLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	limit = min(limit, maxHistoryLimit)
	offset, ok := queryInt(q.Get("offset"), 0)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid offset parameter")
		return
	}

	probes, total, err := s.store.History(r.Context(), s.endpoint, limit, offset)
	if err != nil {
		s.logger.Error("History", "endpoint", s.endpoint, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if probes == nil {
		probes = []storage.Probe{}
	}

	respond(w, http.StatusOK, envelope{Data: historyResponse{Checks: probes, Total: total}})
}

// --- Middleware ---

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
