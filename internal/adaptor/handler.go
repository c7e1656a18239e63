package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-api/internal/usecase"
	"marketplace-api/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Product *ProductHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	h := &Handler{
		Auth: NewAuthHandler(service.Auth, log),
		User: NewUserHandler(service.User, log),
	}
	if service.Product != nil {
		h.Product = NewProductHandler(service.Product, log)
	}
	return h
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

// writeServiceError maps the service error taxonomy to HTTP. Messages for
// credential failures are fixed strings so responses never leak detail.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var verr *usecase.ValidationError

	switch {
	case errors.As(err, &verr):
		log.Warn(operation+" validation failed", zap.Any("errors", verr.Fields))
		utils.ResponseBadRequest(w, "Validation failed", verr.Fields)

	case errors.Is(err, usecase.ErrDuplicateEmail):
		log.Warn(operation+" failed - duplicate email")
		utils.ResponseBadRequest(w, usecase.ErrDuplicateEmail.Error(), nil)

	case errors.Is(err, usecase.ErrInvalidCredentials):
		utils.ResponseUnauthorized(w, usecase.ErrInvalidCredentials.Error())

	case errors.Is(err, usecase.ErrInvalidSession):
		utils.ResponseUnauthorized(w, usecase.ErrInvalidSession.Error())

	case errors.Is(err, usecase.ErrAccountLocked):
		var detail map[string]string
		if until, ok := usecase.LockedUntil(err); ok {
			detail = map[string]string{"locked_until": until.Format(time.RFC3339)}
			w.Header().Set("Retry-After", retryAfter(until))
		}
		utils.ResponseLocked(w, usecase.ErrAccountLocked.Error(), detail)

	case errors.Is(err, usecase.ErrInvalidOrExpiredToken):
		utils.ResponseBadRequest(w, usecase.ErrInvalidOrExpiredToken.Error(), nil)

	case errors.Is(err, usecase.ErrNotFound):
		utils.ResponseNotFound(w, usecase.ErrNotFound.Error())

	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, usecase.ErrForbidden.Error())

	case errors.Is(err, usecase.ErrUploadsDisabled):
		utils.ResponseServiceUnavailable(w, usecase.ErrUploadsDisabled.Error())

	default:
		utils.LogError(log, operation+" failed", err)
		utils.ResponseInternalError(w, "Internal server error")
	}
}

func retryAfter(until time.Time) string {
	secs := int(time.Until(until).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health. A nil pinger means the memory store.
func Health(db Pinger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.Error("Health check failed", zap.Error(err))
				utils.ResponseServiceUnavailable(w, "Database unavailable")
				return
			}
		}
		utils.ResponseSuccess(w, "OK", map[string]string{"status": "healthy"})
	}
}
