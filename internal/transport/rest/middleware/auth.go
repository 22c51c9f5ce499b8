package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"earnflow/internal/model"
	"earnflow/internal/service"
)

type contextKey string

const SessionKey contextKey = "session"

// TokenValidator turns a bearer token into a session. AuthService implements it.
type TokenValidator interface {
	ValidateUserToken(token string) (*model.Session, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireUser validates the user JWT from the Authorization header
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		session, err := m.validator.ValidateUserToken(token)
		if err != nil {
			unauthorized(w, service.ErrInvalidToken.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), *session)))
	})
}

// WithSession stores the caller's session in ctx
func WithSession(ctx context.Context, s model.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(SessionKey).(model.Session)
	return s, ok
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	s, _ := GetSession(ctx)
	return s.UserID
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireAdmin allows only the listed user ids. It must run after RequireUser.
func RequireAdmin(adminIDs []string) func(http.Handler) http.Handler {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !admins[GetUserID(r.Context())] {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
