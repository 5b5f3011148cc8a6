package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/psipractice/booking-api/internal/availability"
	"github.com/psipractice/booking-api/internal/contact"
	httpmiddleware "github.com/psipractice/booking-api/internal/http/middleware"
	"github.com/psipractice/booking-api/internal/identity"
	"github.com/psipractice/booking-api/internal/sessions"
	"github.com/psipractice/booking-api/internal/users"
	"github.com/psipractice/booking-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	Tokens              *identity.TokenManager
	UsersHandler        *users.Handler
	SessionsHandler     *sessions.Handler
	AvailabilityHandler *availability.Handler
	ContactHandler      *contact.Handler
	MetricsHandler      http.Handler
	RateLimiter         httpmiddleware.Limiter
	CORSAllowedOrigins  []string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
		}

		public.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.UsersHandler.Register)
			r.Post("/login", cfg.UsersHandler.Login)
			r.Post("/refresh", cfg.UsersHandler.Refresh)
		})

		public.Route("/availability", func(r chi.Router) {
			r.Get("/dates", cfg.AvailabilityHandler.GetAvailableDates)
			r.Get("/slots", cfg.AvailabilityHandler.GetAvailableSlots)
		})

		if cfg.ContactHandler != nil {
			public.Post("/contact", cfg.ContactHandler.Submit)
		}
	})

	// Authenticated endpoints (patient or admin).
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.RequireAuth(cfg.Tokens))
		authed.Post("/sessions", cfg.SessionsHandler.Create)
		authed.Get("/sessions", cfg.SessionsHandler.List)
		authed.Post("/sessions/{id}/book", cfg.SessionsHandler.Book)
	})

	// Admin endpoints.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.RequireAdmin(cfg.Tokens))
		admin.Route("/admin", func(r chi.Router) {
			r.Get("/users", cfg.UsersHandler.ListUsers)

			r.Get("/sessions", cfg.SessionsHandler.List)
			r.Post("/sessions", cfg.SessionsHandler.AdminCreate)
			r.Patch("/sessions/{id}", cfg.SessionsHandler.Update)
			r.Delete("/sessions/{id}", cfg.SessionsHandler.Delete)

			r.Get("/windows", cfg.AvailabilityHandler.ListWindows)
			r.Post("/windows", cfg.AvailabilityHandler.CreateWindow)
			r.Patch("/windows/{id}", cfg.AvailabilityHandler.UpdateWindow)
			r.Delete("/windows/{id}", cfg.AvailabilityHandler.DeleteWindow)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
