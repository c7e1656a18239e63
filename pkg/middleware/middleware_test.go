package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/internal/usecase"
	"marketplace-api/pkg/metrics"
	"marketplace-api/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubVerifier struct {
	user *entity.User
	err  error
	got  string
}

func (s *stubVerifier) VerifySession(_ context.Context, token string) (*entity.User, error) {
	s.got = token
	return s.user, s.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAuthenticate(t *testing.T) {
	uid := uuid.New()

	tests := []struct {
		name      string
		header    string
		verifier  *stubVerifier
		wantCode  int
		wantToken string
	}{
		{"missing header", "", &stubVerifier{}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", &stubVerifier{}, http.StatusUnauthorized, ""},
		{"empty token", "Bearer   ", &stubVerifier{}, http.StatusUnauthorized, ""},
		{"rejected", "Bearer bad.token.here", &stubVerifier{err: usecase.ErrInvalidSession}, http.StatusUnauthorized, "bad.token.here"},
		{"store down", "Bearer t", &stubVerifier{err: errors.Join(usecase.ErrStoreUnavailable, errors.New("eof"))}, http.StatusInternalServerError, "t"},
		{"valid", "Bearer good.jwt.token", &stubVerifier{user: &entity.User{Base: entity.Base{ID: uid}, Role: entity.RoleUser}}, http.StatusNoContent, "good.jwt.token"},
		{"lowercase scheme", "bearer good.jwt.token", &stubVerifier{user: &entity.User{Base: entity.Base{ID: uid}, Role: entity.RoleUser}}, http.StatusNoContent, "good.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = utils.GetUserIDFromContext(r.Context())
				okHandler(w, r)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(tt.verifier, zap.NewNop())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantToken, tt.verifier.got)
			if tt.wantCode == http.StatusNoContent {
				assert.Equal(t, uid, gotID)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	rl := NewIPRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := RateLimit(rl, zap.NewNop())(http.HandlerFunc(okHandler))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:5001").Code)
	limited := call("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2:5000").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:5003").Code)

	now = now.Add(time.Hour)
	assert.Equal(t, 2, rl.Prune(30*time.Minute))
	assert.Zero(t, rl.Len())
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Recover(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, logs.FilterMessage("PANIC recovered").Len())
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusNotFound, entries[0].ContextMap()["status"])
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/products/{id}", okHandler)

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `marketplace_http_requests_total{method="GET",route="/api/products/{id}",status="204"} 2`)
	assert.False(t, strings.Contains(body, `route="/api/products/a"`))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(utils.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
