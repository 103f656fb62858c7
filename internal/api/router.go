// internal/api/router.go
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(handler *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.HandleHealth)
	r.Get("/api/messages", handler.HandleMessages)
	r.Get("/api/status", handler.HandleStatus)
	r.Get("/ws", handler.HandleWebSocket)
	r.Handle("/prometheus", promhttp.Handler())

	return r
}
