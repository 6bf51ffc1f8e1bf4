package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/gdg-garage/medislot-api/internal/booking"
	"github.com/gdg-garage/medislot-api/internal/events"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"github.com/gdg-garage/medislot-api/internal/registration"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Deps struct {
	DB            *gorm.DB
	Issuer        *auth.Issuer
	Events        *events.Service
	Registrations *registration.Service
	Bookings      *booking.Service
}

func NewConfig() huma.Config {
	config := huma.DefaultConfig("MediSlot API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		auth.SecurityScheme: {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	return config
}

func RegisterRoutes(r *chi.Mux, deps Deps) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	api := humachi.New(r, NewConfig())
	Register(api, deps)
	return api
}

// Register mounts every operation on api. The auth middleware must be in
// place before operations are registered.
func Register(api huma.API, deps Deps) {
	api.UseMiddleware(auth.Middleware(api, deps.Issuer))

	NewEventHandler(deps.Events).register(api, auth.Protected(auth.RoleAdmin))
	NewRegistrationHandler(deps.Registrations).register(api)
	NewBookingHandler(deps.Bookings).register(api)
	NewCatalogHandler(deps.DB).register(api)
	NewNotificationHandler(notifier.NewInApp(deps.DB)).register(api)
}

func tagged(tags ...string) func(*huma.Operation) {
	return func(o *huma.Operation) {
		o.Tags = append(o.Tags, tags...)
	}
}

func operation(op huma.Operation, opts ...func(*huma.Operation)) huma.Operation {
	for _, opt := range opts {
		opt(&op)
	}
	return op
}
