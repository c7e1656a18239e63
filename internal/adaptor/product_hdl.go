package adaptor

import (
	"net/http"

	"marketplace-api/internal/dto/request"
	"marketplace-api/internal/usecase"
	"marketplace-api/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service usecase.ProductService
	log     *zap.Logger
}

func NewProductHandler(service usecase.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     log,
	}
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context(), parseProductQuery(r.URL.Query()))
	if err != nil {
		writeServiceError(w, h.log, err, "list products")
		return
	}

	utils.ResponseSuccess(w, "Products retrieved successfully", resp)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "get product")
		return
	}

	utils.ResponseSuccess(w, "Product retrieved successfully", resp)
}

// Mine handles GET /api/products/user/my-products
func (h *ProductHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	resp, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "list my products")
		return
	}

	utils.ResponseSuccess(w, "Products retrieved successfully", resp)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create product")
		return
	}

	utils.ResponseCreated(w, "Product created successfully", resp)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req request.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "update product")
		return
	}

	utils.ResponseSuccess(w, "Product updated successfully", resp)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.log, err, "delete product")
		return
	}

	utils.ResponseSuccess(w, "Product deleted successfully", nil)
}

// UploadURL handles POST /api/products/images/upload-url
func (h *ProductHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.ImageUploadURL(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "image upload url")
		return
	}

	utils.ResponseSuccess(w, "Upload URL created", resp)
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid product ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
