package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/assignments"
	"github.com/wolfman30/counseling-clinic/internal/cashregister"
	"github.com/wolfman30/counseling-clinic/internal/dashboard"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	httpmiddleware "github.com/wolfman30/counseling-clinic/internal/http/middleware"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/internal/packages"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// RateLimit configures the booking limiter. Zero RPS disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AuthSecret         string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
	HealthChecks       map[string]HealthChecker
	BookingRateLimit   RateLimit
	// MaxBodyBytes caps JSON bodies; MaxUploadBytes caps assignment multipart bodies.
	MaxBodyBytes   int64
	MaxUploadBytes int64

	Appointments *appointments.Handler
	Directory    *directory.Handler
	Dashboard    *dashboard.StatsHandler
	CashRegister *cashregister.Handler
	Assignments  *assignments.Handler
	Packages     *packages.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", health(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.ActorAuth(cfg.AuthSecret))
		api.Use(middleware.Compress(5, "application/json", "text/csv"))

		maxUpload := cfg.MaxUploadBytes
		if maxUpload <= 0 {
			maxUpload = httpmiddleware.DefaultMaxUploadBytes
		}
		jsonLimit := httpmiddleware.BodyLimit(cfg.MaxBodyBytes)
		uploadLimit := httpmiddleware.BodyLimit(maxUpload)

		if h := cfg.Appointments; h != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Use(jsonLimit)
				create := http.HandlerFunc(h.Create)
				if cfg.BookingRateLimit.RPS > 0 {
					r.With(httpmiddleware.RateLimit(cfg.BookingRateLimit.RPS, cfg.BookingRateLimit.Burst)).Post("/", create)
				} else {
					r.Post("/", create)
				}
				r.Get("/", h.List)
				r.Get("/recent", h.Recent)
				r.Get("/export", h.Export)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Patch("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
			api.Get("/client/appointments", h.ListOwn)
		}

		if h := cfg.Directory; h != nil {
			api.Route("/services", func(r chi.Router) {
				r.Use(jsonLimit)
				r.Get("/", h.ListServices)
				r.Post("/", h.CreateService)
				r.Put("/{id}", h.UpdateService)
				r.Delete("/{id}", h.DeleteService)
			})
			api.Route("/personnel", func(r chi.Router) {
				r.Use(jsonLimit)
				r.Get("/", h.ListPersonnel)
				r.Post("/", h.CreatePersonnel)
			})
			api.Route("/clients", func(r chi.Router) {
				r.Use(jsonLimit)
				r.Get("/", h.ListClients)
				r.Post("/", h.CreateClient)
				r.Get("/{id}", h.GetClient)
				r.Put("/{id}", h.UpdateClient)
				r.Delete("/{id}", h.DeleteClient)
			})
		}

		if h := cfg.Packages; h != nil {
			api.Route("/packages", func(r chi.Router) {
				r.Use(jsonLimit)
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		}

		if cfg.Dashboard != nil {
			api.Get("/dashboard/stats", cfg.Dashboard.GetStats)
		}

		if h := cfg.CashRegister; h != nil {
			api.With(jsonLimit).Get("/transactions", h.List)
			api.With(jsonLimit).Post("/transactions", h.Create)
			api.Get("/client/transactions", h.ListOwn)
		}

		if h := cfg.Assignments; h != nil {
			api.Route("/assignments", func(r chi.Router) {
				r.Use(uploadLimit)
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/download", h.Download)
				r.Put("/{id}", h.Update)
				r.Patch("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
				r.Post("/{id}/attachment", h.Attach)
			})
		}
	})

	return r
}

// health reports ok only when every checker answers within a short deadline.
func health(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		respond.JSON(w, status, body)
	}
}
