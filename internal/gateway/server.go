package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(g.metrics.middleware)

	// Public.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(g.metrics.registry, promhttp.HandlerOpts{}))
	r.Post("/auth/signup", g.handleSignup())
	r.Post("/auth/login", g.handleLogin())

	// Sync API — bearer token required.
	r.Group(func(r chi.Router) {
		r.Use(g.authMiddleware)
		r.Route("/api", func(r chi.Router) {
			r.Get("/users/{id}", g.handleFetchUser())
			r.Put("/users/{id}", g.handleUpsertUser())
			r.Get("/users/{id}/threads", g.handleListThreads())
			r.Put("/threads/{id}", g.handleUpsertThread())
		})
		r.Get("/ws/events", g.handleEvents())
	})

	return r
}
