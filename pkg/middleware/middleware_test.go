package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/utils"
)

type stubAuth map[string]*models.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, apperrors.Unauthenticated("Invalid token")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func whoami(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, user.ID)
}

func TestAuthMiddleware(t *testing.T) {
	auth := stubAuth{"good": {ID: "u1"}}
	h := AuthMiddleware(auth)(http.HandlerFunc(whoami))

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "good"}) }, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	auth := stubAuth{"good": {ID: "u1"}}
	var seen *models.User
	h := OptionalAuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.ID)
}

func TestRecoveryMasksPanicsInProduction(t *testing.T) {
	cfg := &config.Config{Environment: "production"}
	h := Recovery(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Internal server error", resp.Error.Message)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// body-less POSTs such as /api/ideas/upvote/{id} pass
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, rl.Size())
	now = now.Add(11 * time.Minute)
	assert.Equal(t, 2, rl.Cleanup())
	assert.Equal(t, 0, rl.Size())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestNormalize(t *testing.T) {
	var path, host string
	h := Normalize()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, host = r.URL.Path, r.Host
	}))
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback%20%20", nil)
	req.Header.Set("X-Forwarded-Host", "api.example.com")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/auth/google/callback", path)
	assert.Equal(t, "api.example.com", host)
}

func TestNormalizeTrailingSlashAndProxyChain(t *testing.T) {
	var path, scheme string
	h := Normalize()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, scheme = r.URL.Path, r.URL.Scheme
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/ideas/", nil)
	req.Header.Set("X-Forwarded-Proto", "https, http")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/api/ideas", path)
	assert.Equal(t, "https", scheme)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "/", path)
}

func TestCORSOrigins(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Config
		origins     []string
		credentials bool
	}{
		{"dev wildcard", config.Config{Environment: "development", AllowedOrigins: []string{"*"}, FrontendURL: "http://localhost:5173"}, []string{"*"}, false},
		{"prod wildcard narrows to frontend", config.Config{Environment: "production", AllowedOrigins: []string{"*"}, FrontendURL: "https://app.example.com"}, []string{"https://app.example.com"}, true},
		{"explicit list gains frontend", config.Config{Environment: "production", AllowedOrigins: []string{"https://admin.example.com"}, FrontendURL: "https://app.example.com"}, []string{"https://admin.example.com", "https://app.example.com"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origins, credentials := ResolveOrigins(&tt.cfg)
			assert.Equal(t, tt.origins, origins)
			assert.Equal(t, tt.credentials, credentials)
		})
	}
}

func TestCORSPreflightAllowsCredentials(t *testing.T) {
	cfg := &config.Config{Environment: "production", AllowedOrigins: []string{"*"}, FrontendURL: "https://app.example.com"}
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/ideas", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
