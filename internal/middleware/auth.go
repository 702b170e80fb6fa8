package middleware

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/session"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey       contextKey = "user_id"
	UserRoleKey     contextKey = "user_role"
	SessionTokenKey contextKey = "session_token"
)

// LoginPath is where anonymous visitors of protected pages are sent
const LoginPath = "/auth/login/"

// SessionMiddleware loads the session named by the cookie into the request
// context. Requests without a valid session continue anonymously.
func SessionMiddleware(sessions session.Manager, cookieName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrStoreUnavailable) {
					logger.Error("Session store unavailable, treating request as anonymous", zap.Error(err))
				} else {
					logger.Debug("Session validation failed", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			// Add user info to context
			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, SessionTokenKey, cookie.Value)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession redirects anonymous requests to the login page
func RequireSession(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetUserID(r.Context()); !ok {
				logger.Debug("Login required", zap.String("path", r.URL.Path))
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// GetSessionToken returns the raw session token of the request
func GetSessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenKey).(string)
	return token, ok
}
