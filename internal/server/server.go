// Package server exposes the export pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalog-export/internal/common/config"
	"catalog-export/internal/common/logger"
	"catalog-export/internal/export"
	"catalog-export/internal/export/jobs"
)

// Server wires the HTTP surface around the exporter. jobStore may be nil;
// exports then run without job records.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

func New(cfg config.ServerConfig, exporter *export.Exporter, jobStore *jobs.Store, log logger.Logger) *Server {
	h := newExportHandler(exporter, jobStore, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.RequestTimeout) * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/exports", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{jobID}", h.Status)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: r,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
