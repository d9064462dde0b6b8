package routes

import (
	"context"
	"net/http"

	"github.com/giannis84/character-browser/internal/logging"
	"github.com/go-chi/chi/v5"
)

// Pinger reports whether the favourites store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealthRoutes creates the health check endpoints.
func RegisterHealthRoutes(store Pinger) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(r.Context()); err != nil {
				logging.Log(r.Context()).Layer("routes").Op("ready").Err(err).Warn("store not ready")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("store not ready"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})
	}
}
