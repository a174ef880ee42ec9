package middleware

import (
	"context"
	"net/http"
	"strings"

	"transparency-monitor/internal/auth"
	"transparency-monitor/internal/service"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
	UserOrgKey   contextKey = "user_org"
)

// AuthMiddleware validates JWT tokens
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the JWT token and adds the caller's identity
// to the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := contextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth validates a JWT token if present but doesn't require it
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				if claims, err := m.authService.ValidateToken(parts[1]); err == nil {
					r = r.WithContext(contextWithClaims(r.Context(), claims))
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func contextWithClaims(ctx context.Context, claims *auth.JWTClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	if claims.OrganizationID != nil {
		ctx = context.WithValue(ctx, UserOrgKey, *claims.OrganizationID)
	}
	return ctx
}

// GetUserID retrieves the user ID from the request context
func GetUserID(r *http.Request) (uint, bool) {
	userID, ok := r.Context().Value(UserIDKey).(uint)
	return userID, ok
}

// GetUserEmail retrieves the user email from the request context
func GetUserEmail(r *http.Request) (string, bool) {
	email, ok := r.Context().Value(UserEmailKey).(string)
	return email, ok
}

// GetUserRole retrieves the user role from the request context
func GetUserRole(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(UserRoleKey).(string)
	return role, ok
}

// GetUserOrganizationID retrieves the caller's organization ID from the
// request context. Reviewer accounts have none.
func GetUserOrganizationID(r *http.Request) (uint, bool) {
	orgID, ok := r.Context().Value(UserOrgKey).(uint)
	return orgID, ok
}

// GetActor assembles the service-layer caller identity from the
// request context
func GetActor(r *http.Request) (service.Actor, bool) {
	userID, ok := GetUserID(r)
	if !ok {
		return service.Actor{}, false
	}
	actor := service.Actor{UserID: userID}
	actor.Email, _ = GetUserEmail(r)
	actor.Role, _ = GetUserRole(r)
	if orgID, ok := GetUserOrganizationID(r); ok {
		actor.OrganizationID = &orgID
	}
	return actor, true
}

// Helper function to respond with JSON error
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
