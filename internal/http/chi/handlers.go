package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/inbound-processor/endpoints"
	"github.com/marcelsud/inbound-processor/inbound"
)

// DefaultMaxUploadBytes bounds request bodies when Server.MaxUploadBytes is unset
const DefaultMaxUploadBytes int64 = 32 << 20

/* Server bundles what the HTTP layer needs to serve inbound calls
 * Endpoints give the routes; Registry gives the validated config of each one
 */
type Server struct {
	Registry       *inbound.Registry
	Endpoints      []*endpoints.Endpoint
	Processor      *inbound.Processor
	Notifier       *inbound.Notifier
	Metrics        http.Handler
	MaxUploadBytes int64
	LogJSON        bool
}

// Handlers sets up the inbound API routes
func Handlers(ctx context.Context, s Server) *chi.Mux {
	logger := httplog.NewLogger("inbound-processor", httplog.Options{
		JSON: s.LogJSON,
	})
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = DefaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Get("/v1/endpoints", getEndpoints(s.Endpoints).ServeHTTP)

	for _, e := range s.Endpoints {
		r.Method(e.Method, e.Path, postInbound(s, e.Name()))
	}

	return r
}
