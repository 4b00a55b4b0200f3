package api

import (
	_ "fxrelay/docs"
	"fxrelay/internal/api/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(h *handler.Handler, gatherer prometheus.Gatherer) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Get("/api/v1/nodes", h.ListNodes)
	router.Post("/api/v1/nodes/{address}/execute", h.Execute)
	router.Post("/api/v1/nodes/{address}/query", h.Query)
	router.Put("/api/v1/bank/balances", h.SetBalance)
	router.Get("/api/v1/bank/balances/{address}/{denom}", h.GetBalance)
	return router
}
