package common

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserLookup confirms that the user named by a valid token still exists.
type UserLookup func(ctx context.Context, userID string) error

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates the bearer token, loads the user and injects its id.
func AuthMiddleware(tokens *TokenManager, lookup UserLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				WriteError(w, logger, Unauthorized("Not authenticated"))
				return
			}

			claims, err := tokens.ValidToken(tokenString)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					WriteError(w, logger, Unauthorized("Token has expired"))
					return
				}
				WriteError(w, logger, Unauthorized("Invalid token"))
				return
			}

			if lookup != nil {
				if err := lookup(r.Context(), claims.UserID); err != nil {
					WriteError(w, logger, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

// CurrentUserID is for handlers mounted behind AuthMiddleware.
func CurrentUserID(r *http.Request) (string, error) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		return "", Unauthorized("Not authenticated")
	}
	return id, nil
}
