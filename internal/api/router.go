// Package api serves the segmentation dataset to the dashboard over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/segment-cli/internal/dataset"
)

// Options configures the router middleware.
type Options struct {
	RateLimit   float64 // requests per second, <= 0 disables limiting
	RateBurst   int
	CORSOrigins []string
}

// NewRouter returns the HTTP handler for ds.
func NewRouter(ds *dataset.Dataset, opts Options) http.Handler {
	h := &handler{ds: ds}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.RateLimit > 0 {
		r.Use(rateLimit(opts.RateLimit, opts.RateBurst))
	}
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/periods", h.periods)
		r.Get("/segments", h.segments)
		r.Get("/segments/lifetime", h.lifetime)
		r.Get("/customers", h.customers)
		r.Get("/table", h.table)
	})
	return r
}
