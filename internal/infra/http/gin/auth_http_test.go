package ginserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsvc "kloset/internal/app/services/auth"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/infra/config"
	"kloset/internal/infra/obs"
	"kloset/internal/infra/security"
	"kloset/internal/infra/storage/memory"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	factory := memory.NewFactory()
	svc := &authsvc.Service{
		Users:      factory.UsersRepo,
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}
	srv := NewServer(
		config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{},
		obs.HealthHandlers{},
		Handlers{
			Auth:           AuthHandler{Service: svc},
			AuthMiddleware: AuthMiddleware{Service: svc}.Handle,
		},
	)
	return srv.Handler
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRoundTrip(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "amina@example.com", "name": "Amina", "password": "long enough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.Token)
	assert.Equal(t, "amina@example.com", registered.User.Email)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/auth/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), registered.User.ID)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/auth/logout", registered.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the token died with the session
	rec = doJSON(t, h, http.MethodGet, "/api/v1/auth/me", registered.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthErrors(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "amina@example.com", "name": "Amina", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "amina@example.com", "name": "Amina", "password": "long enough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "amina@example.com", "name": "Other", "password": "long enough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "amina@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/auth/me", "no-such-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRespondFaultMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{fault.Validation("bad input"), http.StatusBadRequest},
		{fault.NotFound("missing"), http.StatusNotFound},
		{fault.Forbidden("not yours"), http.StatusForbidden},
		{fault.InvalidState("wrong state"), http.StatusConflict},
		{fault.Conflict("taken"), http.StatusConflict},
		{fault.Dependency("broker down", errors.New("dial timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		respondFault(c, nil, tc.err)
		assert.Equal(t, tc.code, rec.Code, "%v", tc.err)
	}

	// internals never leak on unknown errors
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondFault(c, nil, errors.New("secret database detail"))
	assert.NotContains(t, rec.Body.String(), "secret")
}
