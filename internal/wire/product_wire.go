package wire

import (
	"net/http"

	"marketplace-api/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireProduct(r chi.Router, productHandler *adaptor.ProductHandler, authn func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// ==================== PROTECTED ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/user/my-products", productHandler.Mine)
			r.Post("/images/upload-url", productHandler.UploadURL)
			r.Post("/", productHandler.Create)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
		})

		// ==================== PUBLIC ROUTES ====================
		r.Get("/", productHandler.List)
		r.Get("/{id}", productHandler.Get)
	})
}
