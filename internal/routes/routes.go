// Package routes wires HTTP handlers onto the router.
package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Birzhan20/neuro-search-core/internal/handlers"
)

// Handlers groups everything the router needs.
type Handlers struct {
	Chat *handlers.ChatHandler
}

// RegisterRoutes sets up all application routes.
func RegisterRoutes(router *mux.Router, h *Handlers) {
	router.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/chat", h.Chat.Chat).Methods(http.MethodPost)
}
