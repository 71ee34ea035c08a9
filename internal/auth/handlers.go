package auth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string   `json:"token"`
	Reviewer Reviewer `json:"reviewer"`
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Warn().Err(err).Str("remote_addr", c.Request().RemoteAddr).Msg("invalid login request body")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request",
		})
	}

	reviewer, err := h.validateCredentials(req.Email, req.Password)
	if err != nil {
		log.Warn().Str("email", req.Email).Msg("login failed")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Invalid credentials",
		})
	}

	token, err := h.manager.GenerateToken(*reviewer)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate token")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to generate token",
		})
	}

	log.Info().Str("email", reviewer.Email).Msg("reviewer logged in")

	return c.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		Reviewer: *reviewer,
	})
}

// Me returns the authenticated reviewer's own identity.
func (h *Handler) Me(c echo.Context) error {
	reviewer := ReviewerFromContext(c)
	if reviewer == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	return c.JSON(http.StatusOK, reviewer)
}

// validateCredentials checks credentials against the REVIEWER_USERS env
// var. Format: EMAIL:PASSWORD:NAME:ROLES, semicolon-separated users.
// Example: jane@insurer.example:pass123:Jane:reviewer,admin
func (h *Handler) validateCredentials(email, password string) (*Reviewer, error) {
	usersEnv := os.Getenv("REVIEWER_USERS")
	if usersEnv == "" {
		// Default reviewer for development
		usersEnv = "reviewer@example.com:reviewer:Reviewer:reviewer,admin"
	}

	users := strings.Split(usersEnv, ";")
	for _, userStr := range users {
		parts := strings.Split(userStr, ":")
		if len(parts) < 4 {
			continue
		}

		userEmail := parts[0]
		userPassword := parts[1]
		userName := parts[2]
		rolesStr := parts[3]

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(email), []byte(userEmail)) == 1 &&
			subtle.ConstantTimeCompare([]byte(password), []byte(userPassword)) == 1 {

			return &Reviewer{
				ID:    reviewerID(email),
				Email: email,
				Name:  userName,
				Roles: strings.Split(rolesStr, ","),
			}, nil
		}
	}

	return nil, ErrInvalidCredentials
}

// reviewerID derives a stable id from the login email; it is what gets
// stamped into reviewed_by on overrides.
func reviewerID(email string) string {
	return strings.ReplaceAll(email, "@", "-")
}

var ErrInvalidCredentials = &AuthError{"Invalid credentials"}

type AuthError struct {
	message string
}

func (e *AuthError) Error() string {
	return e.message
}
