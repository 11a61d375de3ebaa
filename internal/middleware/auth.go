// Package middleware provides HTTP middlewares for authentication, logging,
// metrics and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"slices"
)

const (
	// HeaderUserID and HeaderAuthToken carry the credentials of an
	// authenticated request.
	HeaderUserID    = "X-User-Id"
	HeaderAuthToken = "X-Auth-Token"
)

type ctxKey string

const (
	userKey  ctxKey = "user"
	tokenKey ctxKey = "token"
)

// Authenticator checks a user id and login token pair. Any error rejects
// the request.
type Authenticator interface {
	Authenticate(ctx context.Context, userID, token string) error
}

// TokenAuth is a middleware that requires the X-User-Id and X-Auth-Token
// headers on every request except those to publicPaths.
//
// On success the user id and token are stored in the request context.
func TokenAuth(auth Authenticator, publicPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(publicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			userID, token := r.Header.Get(HeaderUserID), r.Header.Get(HeaderAuthToken)
			if userID == "" || token == "" {
				http.Error(w, "You must be logged in to do this.", http.StatusUnauthorized)
				return
			}
			if err := auth.Authenticate(r.Context(), userID, token); err != nil {
				http.Error(w, "You must be logged in to do this.", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user id from ctx. Returns
// an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userKey).(string); ok {
		return s
	}
	return ""
}

// GetTokenFromContext extracts the login token of the request.
func GetTokenFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(tokenKey).(string); ok {
		return s
	}
	return ""
}
