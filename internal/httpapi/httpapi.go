// Package httpapi exposes the database over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tuannm99/heapsql/internal/sql/executor"
)

// Database is the slice of *heapsql.Database the API needs.
type Database interface {
	Exec(sql string) (*executor.Result, error)
	Tables() ([]string, error)
}

type ExecRequest struct {
	SQL string `json:"sql"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TablesResponse struct {
	Tables []string `json:"tables"`
}

type Server struct {
	db     Database
	log    *slog.Logger
	router *chi.Mux
}

func NewServer(db Database, log *slog.Logger, debug bool) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{db: db, log: log.With("component", "http"), router: chi.NewRouter()}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	if debug {
		s.router.Use(middleware.Logger)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.health)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/exec", s.exec)
		r.Get("/tables", s.tables)
	})
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("heapsql http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) exec(w http.ResponseWriter, r *http.Request) {
	var req ExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	if req.SQL == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "sql is required"})
		return
	}

	res, err := s.db.Exec(req.SQL)
	if err != nil {
		s.log.Debug("exec failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) tables(w http.ResponseWriter, _ *http.Request) {
	names, err := s.db.Tables()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: names})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
