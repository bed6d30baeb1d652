package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maxpoletaev/butterfly/api/handler"
	"github.com/maxpoletaev/butterfly/internal/telemetry"
)

func CreateRouter(cluster handler.Cluster) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	handler.NewGossipHandler(cluster).Register(r)
	handler.NewCensusHandler(cluster).Register(r)
	r.Handle("/metrics", telemetry.MetricsHandler())

	return r
}
