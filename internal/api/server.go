// Package api serves run history and metrics over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"etl-verify/internal/store"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	defaultListLimit        = 100
)

// History is the read side of the run history store.
type History interface {
	List(ctx context.Context, limit int) ([]*store.Record, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*store.Record, error)
}

type Server struct {
	bindAddress string
	httpServer  *http.Server
}

func NewServer(bindAddress string, history History) *Server {
	return &Server{
		bindAddress: bindAddress,
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           NewRouter(history),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func NewRouter(history History) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, HealthReply{Status: "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Get("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		recs, err := history.List(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = render.Render(w, r, RunsReply{Runs: nonNil(recs)})
	})

	router.Get("/api/v1/runs/{caseID}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "caseID"))
		if err != nil {
			http.Error(w, "invalid test case id", http.StatusBadRequest)
			return
		}
		recs, err := history.ListByCase(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(recs) == 0 {
			http.Error(w, "no runs recorded for test case", http.StatusNotFound)
			return
		}
		_ = render.Render(w, r, RunsReply{Runs: recs})
	})

	return router
}

func nonNil(recs []*store.Record) []*store.Record {
	if recs == nil {
		return []*store.Record{}
	}
	return recs
}

// Run serves on listener until ctx is cancelled.
func (s *Server) Run(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.httpServer.SetKeepAlivesEnabled(false)
		_ = s.httpServer.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("serving api: %s", s.bindAddress)
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

type HealthReply struct {
	Status string `json:"status"`
}

type RunsReply struct {
	Runs []*store.Record `json:"runs"`
}

func (h HealthReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (rr RunsReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
