// Package server serves the admin endpoints of the stagehand CLI: health
// probes, Prometheus metrics and a JSON view of every registered manager.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
	"github.com/bft-labs/stagehand/pkg/log"
	"github.com/bft-labs/stagehand/pkg/registry"
)

const servicePrefix = "lifecycle:"

// StageView is one manager in the /stages response.
type StageView struct {
	Name        string   `json:"name"`
	Stage       string   `json:"stage"`
	Description string   `json:"description"`
	Next        []string `json:"next"`
}

// NewRouter wires the admin routes.
func NewRouter(c *registry.Container, probes healthcheck.Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/live", probes.LiveEndpoint)
	r.Get("/ready", probes.ReadyEndpoint)
	r.Handle("/metrics", metrics)

	r.Get("/stages", func(w http.ResponseWriter, r *http.Request) {
		views := make([]StageView, 0, c.Len())
		for _, name := range c.Names() {
			if !strings.HasPrefix(name, servicePrefix) {
				continue
			}
			if m, ok := lifecycle.FromContainer(c, strings.TrimPrefix(name, servicePrefix)); ok {
				views = append(views, viewOf(m))
			}
		}
		writeJSON(w, http.StatusOK, views)
	})

	r.Get("/stages/{name}", func(w http.ResponseWriter, r *http.Request) {
		m, ok := lifecycle.FromContainer(c, chi.URLParam(r, "name"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "manager not found"})
			return
		}
		writeJSON(w, http.StatusOK, viewOf(m))
	})

	return r
}

func viewOf(m *lifecycle.DefaultManager) StageView {
	s := m.Stage()
	next := make([]string, 0, 3)
	for _, n := range lifecycle.AllowedTransitions(s) {
		next = append(next, n.String())
	}
	return StageView{
		Name:        m.Name(),
		Stage:       s.String(),
		Description: s.Description(),
		Next:        next,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server runs the admin router on a TCP address.
type Server struct {
	srv    *http.Server
	logger log.Logger
	ln     net.Listener
}

// New creates a server for addr. Nothing is bound until Start.
func New(addr string, h http.Handler, logger log.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("admin server listening", log.String("addr", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", log.Err(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
