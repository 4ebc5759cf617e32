package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserIDContextKey is the key used to store the caller's user id in the request context.
	UserIDContextKey ContextKey = "user_id"
)

// accessTokenParam carries the token for websocket upgrades, where browsers can't set headers
const accessTokenParam = "access_token"

// AuthMiddleware verifies HS256 access tokens issued by the identity provider.
// The token subject must be the user's uuid and is stored in the request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
					WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token signature")
					return
				}
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token: "+err.Error())
				return
			}
			if !token.Valid {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid user ID in token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, userID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get(accessTokenParam); t != "" {
			return t, nil
		}
		return "", errors.New("Authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

// UserIDFromContext returns the authenticated user id set by AuthMiddleware
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok && id != ""
}
