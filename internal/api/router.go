package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/fuomag9/accounts-kabomba/internal/config"
	"github.com/fuomag9/accounts-kabomba/internal/oauth"
	"github.com/fuomag9/accounts-kabomba/internal/token"
	"github.com/fuomag9/accounts-kabomba/internal/users"
)

// NewRouter creates a new HTTP router
func NewRouter(cfg *config.Config, store users.Store, sessions oauth.SessionStore, issuer *token.Issuer) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware(cfg))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	oauthClient := oauth.NewClient()

	// Credential stuffing protection on credential endpoints
	authLimiter := NewRateLimiter(rate.Limit(1), 10)
	authLimiter.CleanupOldLimiters()

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(authLimiter))
			r.Post("/users/register", HandleRegister(store))
			r.Post("/auth/login", HandleLogin(store, issuer))
		})

		r.Post("/auth/logout", HandleLogout())

		// OAuth routes
		r.Get("/auth/{provider}/login", HandleOAuthLogin(cfg, oauthClient, sessions, oauth.ResolveProvider))
		r.Get("/auth/{provider}/callback", HandleOAuthCallback(cfg, oauthClient, sessions, store, issuer, oauth.ResolveProvider))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(issuer, store))

			r.Get("/auth/me", HandleGetCurrentUser())
			r.Delete("/users/me", HandleDeleteCurrentUser(store))
		})
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
