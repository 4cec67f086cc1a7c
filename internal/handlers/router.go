package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/middleware"
)

// RouterOptions configures the HTTP router.
type RouterOptions struct {
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RateLimit is the number of requests a caller may make per RateWindow.
	// Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// NewRouter registers every endpoint and wraps them with the request
// middleware chain.
func NewRouter(h *Handler, logger logrus.FieldLogger, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/inspections", h.RecordInspection)
	api.HandleFunc("POST /api/usage", h.RecordUsage)
	api.HandleFunc("POST /api/templates", h.UpsertTemplate)
	api.HandleFunc("GET /api/templates", h.ListTemplates)
	api.HandleFunc("POST /api/workorders", h.CreateWorkOrder)
	api.HandleFunc("GET /api/workorders", h.ListWorkOrders)
	api.HandleFunc("GET /api/workorders/{id}", h.GetWorkOrder)
	api.HandleFunc("POST /api/workorders/{id}/transition", h.TransitionWorkOrder)
	api.HandleFunc("GET /api/reports/summary", h.Summary)
	api.HandleFunc("GET /api/reports/watchlist", h.Watchlist)

	var apiHandler http.Handler = api
	if opts.RateLimit > 0 {
		window := opts.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		apiHandler = middleware.NewRateLimitMiddleware().RateLimit(opts.RateLimit, window)(apiHandler)
	}
	mux.Handle("/api/", apiHandler)

	return middleware.Actor(middleware.RequestLogger(logger)(mux))
}
