// Package auth identifies the reviewers allowed to override adjudication
// decisions. HS256 JWTs carry the reviewer identity; the middleware gates
// the review endpoints while adjudication itself stays open to upstream
// services.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Reviewer is an authenticated human user of the review endpoints.
type Reviewer struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type Claims struct {
	Reviewer Reviewer `json:"reviewer"`
	jwt.RegisteredClaims
}

type Config struct {
	JWTSecret       string
	TokenExpiration time.Duration
	RequireAuth     bool
}

type Manager struct {
	config Config
	secret []byte
}

func NewManager(config Config) *Manager {
	secret := config.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		b := make([]byte, 32)
		rand.Read(b)
		secret = base64.StdEncoding.EncodeToString(b)
		log.Warn().Msg("Using generated JWT secret. Set JWT_SECRET env var for production.")
	}

	return &Manager{
		config: config,
		secret: []byte(secret),
	}
}

// Middleware authenticates requests when auth is required. Health and
// login stay public.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.config.RequireAuth {
				return next(c)
			}

			path := c.Path()
			if path == "/health" || path == "/login" {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(401, map[string]string{
					"error": "Missing authorization header",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(401, map[string]string{
					"error": "Invalid authorization header format",
				})
			}

			reviewer, err := m.ValidateToken(parts[1])
			if err != nil {
				return c.JSON(401, map[string]string{
					"error": fmt.Sprintf("Invalid token: %v", err),
				})
			}

			c.Set("reviewer", reviewer)
			return next(c)
		}
	}
}

// RequireRole gates an endpoint on a specific role, on top of token auth.
func (m *Manager) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.config.RequireAuth {
				return next(c)
			}

			reviewer := ReviewerFromContext(c)
			if reviewer == nil {
				return c.JSON(401, map[string]string{
					"error": "Authentication required",
				})
			}

			for _, r := range reviewer.Roles {
				if r == role {
					return next(c)
				}
			}

			return c.JSON(403, map[string]string{
				"error": fmt.Sprintf("Role '%s' required", role),
			})
		}
	}
}

func (m *Manager) GenerateToken(reviewer Reviewer) (string, error) {
	expiresAt := time.Now().Add(m.config.TokenExpiration)
	if m.config.TokenExpiration == 0 {
		expiresAt = time.Now().Add(24 * time.Hour)
	}

	claims := &Claims{
		Reviewer: reviewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "opd-adjudicator",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) ValidateToken(tokenString string) (*Reviewer, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return &claims.Reviewer, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// ReviewerFromContext extracts the authenticated reviewer set by the
// middleware, or nil on unauthenticated requests.
func ReviewerFromContext(c echo.Context) *Reviewer {
	if reviewer, ok := c.Get("reviewer").(*Reviewer); ok {
		return reviewer
	}
	return nil
}

const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
	RoleViewer   = "viewer"
)
