package wire

import (
	"net/http"

	"marketplace-api/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireUser configures the profile routes of the signed-in user
func wireUser(r chi.Router, userHandler *adaptor.UserHandler, authn func(http.Handler) http.Handler) {
	r.With(authn).Get("/profile", userHandler.GetProfile)
	r.With(authn).Put("/profile", userHandler.UpdateProfile)
}
