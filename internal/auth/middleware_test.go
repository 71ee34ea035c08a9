package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareAuthDisabled(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:   "test-secret",
		RequireAuth: false,
	})

	e := echo.New()
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	}, manager.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewarePublicEndpoints(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:   "test-secret",
		RequireAuth: true,
	})

	e := echo.New()
	e.Use(manager.Middleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "healthy")
	})
	e.POST("/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "login")
	})

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec1 := httptest.NewRecorder()
	e.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestMiddlewareMissingToken(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:   "test-secret",
		RequireAuth: true,
	})

	e := echo.New()
	e.Use(manager.Middleware())
	e.GET("/protected", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing authorization header")
}

func TestMiddlewareInvalidTokenFormat(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:   "test-secret",
		RequireAuth: true,
	})

	e := echo.New()
	e.Use(manager.Middleware())
	e.GET("/protected", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing bearer", "just-a-token"},
		{"wrong prefix", "Basic token123"},
		{"extra spaces", "Bearer  token  extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
	})

	reviewer := Reviewer{
		ID:    "jane-insurer.example",
		Email: "jane@insurer.example",
		Name:  "Jane",
		Roles: []string{RoleReviewer},
	}

	token, err := manager.GenerateToken(reviewer)
	assert.NoError(t, err)

	parsed, err := manager.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, reviewer.ID, parsed.ID)
	assert.Equal(t, reviewer.Roles, parsed.Roles)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewManager(Config{JWTSecret: "secret-a", TokenExpiration: time.Hour})
	verifier := NewManager(Config{JWTSecret: "secret-b"})

	token, err := issuer.GenerateToken(Reviewer{ID: "r1"})
	assert.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:       "test-secret",
		TokenExpiration: -time.Minute,
	})

	token, err := manager.GenerateToken(Reviewer{ID: "r1"})
	assert.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	manager := NewManager(Config{
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
		RequireAuth:     true,
	})

	e := echo.New()
	e.Use(manager.Middleware())
	e.POST("/override", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, manager.RequireRole(RoleReviewer))

	viewerToken, _ := manager.GenerateToken(Reviewer{ID: "v1", Roles: []string{RoleViewer}})
	reviewerToken, _ := manager.GenerateToken(Reviewer{ID: "r1", Roles: []string{RoleReviewer}})

	req := httptest.NewRequest(http.MethodPost, "/override", nil)
	req.Header.Set("Authorization", "Bearer "+viewerToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/override", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
