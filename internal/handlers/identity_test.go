package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func identityRouter(cfg IdentityConfig) *gin.Engine {
	router := gin.New()
	router.GET("/whoami", IdentityMiddleware(cfg), func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no identity attached"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"identity": identity.Value, "anonymous": identity.Anonymous})
	})
	return router
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestIdentityMiddleware_BearerToken(t *testing.T) {
	router := identityRouter(IdentityConfig{JWTSecret: testSecret})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "alice"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identity":"user:alice"`)
	assert.Contains(t, w.Body.String(), `"anonymous":false`)
}

func TestIdentityMiddleware_InvalidToken(t *testing.T) {
	router := identityRouter(IdentityConfig{JWTSecret: testSecret})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityMiddleware_MintsAnonymousSession(t *testing.T) {
	router := identityRouter(IdentityConfig{JWTSecret: testSecret})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identity":"anon:`)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestIdentityMiddleware_ReusesExistingSession(t *testing.T) {
	router := identityRouter(IdentityConfig{JWTSecret: testSecret})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "fp-stable"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identity":"anon:fp-stable"`)
	assert.Empty(t, w.Result().Cookies(), "existing session is not re-issued")
}

func TestIdentityMiddleware_RequireAuth(t *testing.T) {
	router := identityRouter(IdentityConfig{JWTSecret: testSecret, RequireAuth: true})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	authed := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	authed.Header.Set("Authorization", "Bearer "+signedToken(t, "bob"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authed)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identity":"user:bob"`)
}
