package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdilshan5712/igolanka-booking/internal/auth"
)

// RouteOptions are the router settings taken from configuration.
type RouteOptions struct {
	EnableCORS    bool
	AllowedOrigin string
}

func RegisterRoutes(r *chi.Mux, authHandler *auth.AuthHandler, bookingHandler *BookingHandler, apiKeyHandler *APIKeyHandler, opts RouteOptions) huma.API {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.EnableCORS {
		r.Use(corsMiddleware(opts.AllowedOrigin))
	}
	r.Use(authHandler.JWTMiddleware)

	// Initialize Huma API
	config := huma.DefaultConfig("iGoLanka Booking API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.TokenCookie,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	cookieAuth := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)
	huma.Get(api, "/me", authHandler.HandleMe, cookieAuth)

	// Booking flow
	huma.Register(api, huma.Operation{
		OperationID:   "start-booking",
		Method:        http.MethodPost,
		Path:          "/booking/start",
		Summary:       "Select a package and open a booking session",
		DefaultStatus: http.StatusOK,
	}, bookingHandler.HandleStart, cookieAuth)
	huma.Get(api, "/booking/draft", bookingHandler.HandleGetDraft)
	huma.Patch(api, "/booking/draft", bookingHandler.HandlePatchDraft)
	huma.Delete(api, "/booking/draft", bookingHandler.HandleResetDraft)
	huma.Get(api, "/booking/steps/{step}", bookingHandler.HandleEnterStep)
	huma.Register(api, huma.Operation{
		OperationID:   "advance-booking-step",
		Method:        http.MethodPost,
		Path:          "/booking/steps/{step}",
		Summary:       "Validate a step and move to the next one",
		DefaultStatus: http.StatusOK,
	}, bookingHandler.HandleAdvanceStep)
	huma.Register(api, huma.Operation{
		OperationID:   "submit-payment",
		Method:        http.MethodPost,
		Path:          "/booking/payment",
		Summary:       "Pay for the current booking draft",
		DefaultStatus: http.StatusOK,
	}, bookingHandler.HandlePayment, cookieAuth)
	huma.Get(api, "/booking/confirmation", bookingHandler.HandleConfirmation)
	huma.Get(api, "/bookings", bookingHandler.HandleBookings, cookieAuth)

	// Integration keys
	huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, cookieAuth)
	huma.Get(api, "/api-keys", apiKeyHandler.HandleList, cookieAuth)
	huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, cookieAuth)

	return api
}

func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	origin = strings.TrimRight(origin, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+SessionHeader)
			w.Header().Set("Access-Control-Expose-Headers", SessionHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
