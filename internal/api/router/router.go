package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/salonhq/booking-agent/internal/http/handlers"
	httpmiddleware "github.com/salonhq/booking-agent/internal/http/middleware"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	WebhookHandler      *handlers.WebhookHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	AvailabilityHandler *handlers.AvailabilityHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.HealthHandler.Check)
	r.Post("/webhook", cfg.WebhookHandler.Inbound)
	r.Post("/voice", handlers.Voice)

	r.Route("/api", func(api chi.Router) {
		api.Get("/appointments/{phone}", cfg.AppointmentsHandler.List)
		api.Post("/appointments", cfg.AppointmentsHandler.Create)
		api.Get("/availability/{date}", cfg.AvailabilityHandler.Get)
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
