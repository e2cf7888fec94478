/**
 * @description
 * This file contains custom middleware for the HTTP router. Middlewares are used
 * to process requests before they reach the final handler, perfect for tasks like
 * authentication, logging, or adding context to a request.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 * - github.com/google/uuid: User IDs carried in token claims.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/goldvault/ledger-service/internal/domain"
)

// principalContextKey is a custom type for the context key to avoid collisions.
type principalContextKey string

const authPrincipalKey principalContextKey = "authPrincipal"

// Principal is the authenticated caller extracted from the bearer token.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// AuthMiddleware creates a middleware that validates HS256 bearer tokens and
// places the authenticated Principal on the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	secretBytes := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				respondWithError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secretBytes, nil
			})
			if err != nil || !token.Valid {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			// Get the user ID from the 'sub' claim (standard JWT claim for subject)
			sub, ok := claims["sub"].(string)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User ID not found in token")
				return
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Malformed user ID in token")
				return
			}

			role, _ := claims["role"].(string)
			if role == "" {
				role = domain.RoleUser
			}

			ctx := context.WithValue(r.Context(), authPrincipalKey, Principal{
				UserID: userID,
				Role:   role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role. It
// must be mounted after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if principal.Role != domain.RoleAdmin {
			respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrincipal retrieves the authenticated Principal from the request context.
// Handlers should use this function to get the caller's identity.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(authPrincipalKey).(Principal)
	return principal, ok
}
