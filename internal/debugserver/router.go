// Package debugserver exposes health, Prometheus metrics, queue statistics
// and a log reopen trigger over HTTP.
package debugserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig contains the dependencies of the debug router.
// Any nil field disables the matching route.
type RouterConfig struct {
	// Gatherer backs GET /metrics.
	Gatherer prometheus.Gatherer

	// Stats backs GET /stats; the result is encoded as JSON.
	Stats func() any

	// Reopen backs POST /reopen.
	Reopen func()
}

// NewRouter builds the debug routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.Stats != nil {
		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, cfg.Stats())
		})
	}

	if cfg.Reopen != nil {
		r.Post("/reopen", func(w http.ResponseWriter, _ *http.Request) {
			cfg.Reopen()
			writeJSON(w, http.StatusAccepted, map[string]string{"reopen": "scheduled"})
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
