package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(UserID(r.Context())))
}

func serve(mw func(http.Handler) http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(echoUser)).ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec := serve(Middleware(testSecret), "Authorization", "Bearer "+tok)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "user-1"})
	noSub := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "x"})
	wrongAlg := sign(t, jwt.SigningMethodHS384, []byte(testSecret), jwt.MapClaims{"sub": "user-1"})

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no sub":     "Bearer " + noSub,
		"wrong alg":  "Bearer " + wrongAlg,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(Middleware(testSecret), "Authorization", header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddlewareDevHeader(t *testing.T) {
	rec := serve(Middleware(""), DevUserHeader, "dev-user")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev-user", rec.Body.String())

	rec = serve(Middleware(""), "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevHeaderIgnoredWithSecret(t *testing.T) {
	rec := serve(Middleware(testSecret), DevUserHeader, "dev-user")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
