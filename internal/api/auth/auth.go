// Package auth resolves the calling user for watch endpoints. Every watch
// operation is scoped to the user ID carried in the bearer token's "sub"
// claim.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/albapepper/seatwatch/internal/api/respond"
)

// DevUserHeader names the header trusted for the user ID when no JWT secret
// is configured. Never honoured once a secret is set.
const DevUserHeader = "X-User-ID"

type ctxKey struct{}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user ID, or "" outside Middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware validates an HS256 bearer token signed with secret and stores
// its subject in the request context. With an empty secret it falls back to
// DevUserHeader for local development.
func Middleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if secret == "" {
				userID = strings.TrimSpace(r.Header.Get(DevUserHeader))
			} else {
				sub, err := subject(r.Header.Get("Authorization"), key)
				if err != nil {
					respond.WriteErrorDetail(w, http.StatusUnauthorized, respond.CodeUnauthorized,
						"Invalid or missing bearer token", err.Error())
					return
				}
				userID = sub
			}
			if userID == "" {
				respond.WriteError(w, http.StatusUnauthorized, respond.CodeUnauthorized, "Missing user identity")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func subject(header string, key []byte) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
