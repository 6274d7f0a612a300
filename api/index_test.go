package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/database"
	customMiddleware "idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/realtime"
	"idea-incubator-backend/pkg/services"
	"idea-incubator-backend/pkg/utils"
)

type apiClient struct {
	t      *testing.T
	router *chi.Mux
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

func newTestRouter(t *testing.T, perMinute int) *apiClient {
	t.Helper()
	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)

	cfg := &config.Config{Environment: "test", FrontendURL: "http://frontend.test", AllowedOrigins: []string{"*"}}
	svc := services.New(db, &realtime.Recorder{}, services.Options{
		JWT:        utils.NewJWTService("router-secret", time.Hour, 24*time.Hour),
		BcryptCost: bcrypt.MinCost,
	})
	router := NewRouter(cfg, Dependencies{
		DB:          db,
		Services:    svc,
		RateLimiter: customMiddleware.NewRateLimiter(perMinute),
	})
	return &apiClient{t: t, router: router}
}

func (c *apiClient) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (c *apiClient) signupAndLogin(first, email, mobile string) (string, *models.User) {
	c.t.Helper()
	rec, _ := c.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstName": first, "lastName": "tester", "email": email, "mobileNumber": mobile, "password": "secret123",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := c.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var login models.UserLoginResponse
	require.NoError(c.t, json.Unmarshal(env.Data, &login))
	return login.AccessToken, &login.User
}

func TestCollaborationScenario(t *testing.T) {
	c := newTestRouter(t, 0)
	aliceToken, alice := c.signupAndLogin("alice", "alice@example.com", "1234567890")
	bobToken, bob := c.signupAndLogin("bob", "bob@example.com", "1234567891")

	rec, env := c.do(http.MethodPost, "/api/ideas/create", bobToken, map[string]interface{}{
		"title": "Solar kiosks", "description": "Charging stations for markets", "tags": []string{"energy"}, "status": "open",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var idea models.Idea
	require.NoError(t, json.Unmarshal(env.Data, &idea))

	rec, env = c.do(http.MethodPost, "/api/collaboration/request", aliceToken, map[string]string{
		"ideaId": idea.ID, "role": "advisor", "message": "I ran a kiosk network",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var collab models.Collaboration
	require.NoError(t, json.Unmarshal(env.Data, &collab))

	// a second pending request for the same idea conflicts
	rec, _ = c.do(http.MethodPost, "/api/collaboration/request", aliceToken, map[string]string{"ideaId": idea.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// only the creator reviews
	rec, _ = c.do(http.MethodPatch, "/api/collaboration/approve/"+collab.ID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = c.do(http.MethodPatch, "/api/collaboration/approve/"+collab.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = c.do(http.MethodGet, "/api/ideas/"+idea.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &idea))
	assert.ElementsMatch(t, []string{bob.ID, alice.ID}, idea.Collaborators)

	rec, env = c.do(http.MethodGet, "/api/auth/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, []string{idea.ID}, me.Collaborations)

	rec, env = c.do(http.MethodGet, "/api/notifications", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []models.Notification
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.NotEmpty(t, notes)
}

func TestWithdrawThenApproveFails(t *testing.T) {
	c := newTestRouter(t, 0)
	aliceToken, _ := c.signupAndLogin("alice", "alice@example.com", "1234567890")
	bobToken, _ := c.signupAndLogin("bob", "bob@example.com", "1234567891")

	_, env := c.do(http.MethodPost, "/api/ideas/create", bobToken, map[string]interface{}{
		"title": "Tool library", "description": "Borrow instead of buy", "status": "open",
	})
	var idea models.Idea
	require.NoError(t, json.Unmarshal(env.Data, &idea))

	_, env = c.do(http.MethodPost, "/api/collaboration/request", aliceToken, map[string]string{"ideaId": idea.ID})
	var collab models.Collaboration
	require.NoError(t, json.Unmarshal(env.Data, &collab))

	rec, env := c.do(http.MethodPatch, "/api/collaboration/withdraw/"+collab.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &collab))
	assert.Equal(t, models.CollaborationWithdrawn, collab.Status)

	rec, env = c.do(http.MethodPatch, "/api/collaboration/approve/"+collab.ID, bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestIdeaStatusEdges(t *testing.T) {
	c := newTestRouter(t, 0)
	token, _ := c.signupAndLogin("alice", "alice@example.com", "1234567890")

	_, env := c.do(http.MethodPost, "/api/ideas/create", token, map[string]interface{}{
		"title": "Night market app", "description": "Find stalls after dark", "status": "open",
	})
	var idea models.Idea
	require.NoError(t, json.Unmarshal(env.Data, &idea))
	path := "/api/ideas/" + idea.ID + "/status"

	rec, _ := c.do(http.MethodPatch, path, token, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = c.do(http.MethodPatch, path, token, map[string]string{"status": "in-progress"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = c.do(http.MethodPatch, path, token, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &idea))
	assert.Equal(t, models.IdeaCompleted, idea.Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := newTestRouter(t, 0)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/getCurrent"},
		{http.MethodPost, "/api/ideas/create"},
		{http.MethodGet, "/api/collaboration/mine"},
		{http.MethodGet, "/api/startup/mine"},
		{http.MethodGet, "/api/notifications"},
	} {
		rec, env := c.do(route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.False(t, env.Success, route.path)
	}

	rec, _ := c.do(http.MethodGet, "/api/notifications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// listing ideas is public
	rec, _ = c.do(http.MethodGet, "/api/ideas", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCookieSessionAuthenticates(t *testing.T) {
	c := newTestRouter(t, 0)
	c.signupAndLogin("alice", "alice@example.com", "1234567890")

	rec, _ := c.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == customMiddleware.AuthCookieName {
			session = ck
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/getCurrent", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitReturns429(t *testing.T) {
	c := newTestRouter(t, 3)

	codes := []int{}
	for i := 0; i < 4; i++ {
		rec, _ := c.do(http.MethodGet, "/api/ideas", "", nil)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)

	// health and metrics sit outside /api
	rec, _ := c.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoutesUseEnvelope(t *testing.T) {
	c := newTestRouter(t, 0)

	rec, env := c.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)

	rec, env = c.do(http.MethodDelete, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	c := newTestRouter(t, 0)
	c.do(http.MethodGet, "/api/ideas", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "idea_incubator_http_requests_total")
}
