package wire

import (
	"net/http"

	"marketplace-api/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireAuth mounts on /api/auth.
func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, authn, limit func(http.Handler) http.Handler) {
	// ==================== PUBLIC ROUTES ====================
	// Credential endpoints are rate limited per client IP
	r.Group(func(r chi.Router) {
		r.Use(limit)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/resend-verification", authHandler.ResendVerification)
	})

	// ==================== PROTECTED ROUTES ====================
	r.With(authn).Put("/password", authHandler.ChangePassword)
}
