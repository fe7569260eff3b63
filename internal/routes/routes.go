package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/handlers"
	"github.com/hwainwright/gatefold/internal/middleware"
	"github.com/hwainwright/gatefold/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	accessHandler *handlers.AccessHandler,
	sessionHandler *handlers.SessionHandler,
	tokenHandler *handlers.TokenHandler,
	alertHandler *handlers.AlertHandler,
	opsSessionHandler *handlers.OpsSessionHandler,
	keyHandler *handlers.OperatorKeyHandler,
	sessionTokens *auth.SessionTokenManager,
	operatorKeys *auth.OperatorKeyManager,
	operatorKeyRepo repositories.OperatorKeyRepository,
	validatePerMinute int,
) {
	// Reader-facing validation; rate limited, no auth (the token IS the auth)
	router.With(middleware.RateLimitByIP(middleware.ValidateRateLimit(validatePerMinute))).
		Post("/access/validate", accessHandler.Validate)

	// In-session endpoints, gated on the session JWT minted at grant time
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionAuth(sessionTokens))

		r.Post("/sessions/heartbeat", sessionHandler.Heartbeat)
		r.Post("/sessions/capture", sessionHandler.Capture)
	})

	// Operator surface, gated on an operator API key
	router.Group(func(r chi.Router) {
		r.Use(auth.OperatorAuth(operatorKeys, operatorKeyRepo))

		r.Post("/ops/tokens", tokenHandler.Issue)
		r.Get("/ops/tokens", tokenHandler.List)
		r.Get("/ops/tokens/{token}/qr", tokenHandler.QR)
		r.Delete("/ops/tokens/{token}", tokenHandler.Revoke)

		r.Get("/ops/alerts", alertHandler.List)
		r.Post("/ops/alerts/{id}/resolve", alertHandler.Resolve)

		r.Get("/ops/sessions", opsSessionHandler.List)

		r.Delete("/ops/keys/{id}", keyHandler.Revoke)
	})
}
