package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.AuthEvent(EventLoginFailure)
	m.AuthEvent(EventLoginFailure)
	m.AuthEvent(EventAccountLocked)
	m.TokensCleared(3)
	m.TokensCleared(0)
	m.ObserveHTTP(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues(EventLoginFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues(EventAccountLocked)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.tokensCleared))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/auth/login", "401")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AuthEvent(EventRegister)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `marketplace_auth_events_total{event="register"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AuthEvent(EventRegister)
		m.TokensCleared(1)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
