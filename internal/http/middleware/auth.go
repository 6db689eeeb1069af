package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/pkg/auth"
)

type contextKey string

const (
	// AccountIDKey is the context key for the authenticated account ID.
	AccountIDKey contextKey = "account_id"
	// ClaimsKey is the context key for the token claims.
	ClaimsKey contextKey = "claims"
)

// AccessTokenValidator validates access tokens.
type AccessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.TokenClaims, error)
}

// Auth creates middleware that validates JWT access tokens.
// Checks Authorization header first, then falls back to cookie for web clients.
func Auth(tokens AccessTokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)

			// Fall back to cookie (web clients)
			if tokenString == "" {
				if token, ok := httputil.GetAccessTokenFromCookie(r); ok {
					tokenString = token
				}
			}

			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			accountID, err := claims.AccountID()
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token from an "Authorization: Bearer" header, or
// an empty string.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetAccountID extracts the account ID from the request context.
func GetAccountID(ctx context.Context) (int64, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(int64)
	return accountID, ok
}

// GetClaims extracts the token claims from the request context.
func GetClaims(ctx context.Context) (*auth.TokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.TokenClaims)
	return claims, ok
}
