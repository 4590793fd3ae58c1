package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/plp/internal/auth"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/metrics"
	models "infinite-experiment/plp/internal/models/gorm"
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) { return f[id], nil }

type fakeCaps map[int64]bool

func (f fakeCaps) CandidateContexts(context.Context, int64) ([]host.TrustContext, error) {
	return []host.TrustContext{host.SystemContext()}, nil
}

func (f fakeCaps) HasCapability(_ context.Context, _ string, _ host.TrustContext, userID int64) (bool, error) {
	return f[userID], nil
}

func (f fakeCaps) UserRoles(context.Context, int64, []host.TrustContext) ([]constants.Role, error) {
	return nil, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenService([]byte("s3cret"))
	users := fakeUsers{1: {ID: 1, Username: "admin"}}

	var seen *models.User
	h := AuthMiddleware(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetActor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := tokens.Issue(1, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "admin", seen.Username)

	ghost, err := tokens.Issue(99, time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIsAdminMiddleware(t *testing.T) {
	h := IsAdminMiddleware(fakeCaps{1: true})(okHandler)

	serve := func(actor *models.User) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(auth.SetActor(req.Context(), actor))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(&models.User{ID: 1}))
	assert.Equal(t, http.StatusForbidden, serve(&models.User{ID: 2}))
	assert.Equal(t, http.StatusUnauthorized, serve(nil))
}

func TestRateLimiter(t *testing.T) {
	h := NewRateLimiter(1, 2).Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware, MetricsMiddleware(reg))
	r.Get("/sections/{id}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sections/12", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues("/sections/{id}", http.MethodGet, "204")))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/v1/sections/{id}/users/{id}", NormalizeEndpoint("/api/v1/sections/12/users/7"))
	assert.Equal(t, "/x/{id}", NormalizeEndpoint("/x/6f1c2a3e-8d2b-4c7a-9e1f-0a1b2c3d4e5f"))
	assert.Equal(t, "/healthCheck", NormalizeEndpoint("/healthCheck"))
}
