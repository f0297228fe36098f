package http

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig collects what the router serves.
type RouterConfig struct {
	Handler        *Handler
	WS             *WSHandler
	AllowedOrigins []string
	Checks         map[string]HealthCheck
}

// NewRouter mounts the REST API under /api, the wizard socket at /ws and /healthz.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz(cfg.Checks)).Methods(http.MethodGet)
	if cfg.WS != nil {
		r.HandleFunc("/ws", cfg.WS.ServeWS)
	}

	h := cfg.Handler
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assessments", h.SubmitAssessment).Methods(http.MethodPost)
	api.HandleFunc("/reports", h.DownloadReport).Methods(http.MethodPost)
	api.HandleFunc("/consultations", h.BookConsultation).Methods(http.MethodPost)
	api.HandleFunc("/catalog", h.GetCatalog).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.StartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.AbandonSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/personal-info", h.SubmitPersonalInfo).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/answers", h.AnswerQuestion).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/back", h.GoBack).Methods(http.MethodPost)

	return withLogging(withCORS(r, cfg.AllowedOrigins))
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		w.Write([]byte("ok"))
	}
}

// withCORS answers preflight requests before routing so every /api route accepts them.
func withCORS(next http.Handler, origins []string) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")
				w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the hijacker.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("http: %s %s status=%d duration=%s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
