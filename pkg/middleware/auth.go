package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace-api/internal/data/entity"
	"marketplace-api/internal/usecase"
	"marketplace-api/pkg/utils"

	"go.uber.org/zap"
)

type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*entity.User, error)
}

// Authenticate validasi bearer JWT dan set user ke context
func Authenticate(sessions SessionVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				utils.ResponseUnauthorized(w, "Missing or malformed authorization token. Use: Bearer <token>")
				return
			}

			// Verify session
			user, err := sessions.VerifySession(r.Context(), token)
			if errors.Is(err, usecase.ErrStoreUnavailable) {
				utils.LogError(logger, "Failed to validate session", err, zap.String("path", r.URL.Path))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if err != nil {
				logger.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			// Set context dengan user info
			ctx := utils.SetUserContext(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
