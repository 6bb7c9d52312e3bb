package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvmarques/sessionauth/internal/server/auth"
	"github.com/dvmarques/sessionauth/internal/server/models"
)

func guardedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ctxUserID)})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, header map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccessTokenMiddleware(t *testing.T) {
	secret := []byte("guard-secret")
	r := guardedRouter(AccessTokenMiddleware(secret))

	t.Run("missing header", func(t *testing.T) {
		w := get(r, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := get(r, map[string]string{"Authorization": "Basic abc"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty bearer", func(t *testing.T) {
		w := get(r, map[string]string{"Authorization": "Bearer "})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		tok, err := auth.GenerateToken("u-1", "u@x.com", models.RoleUser, secret, -time.Second)
		require.NoError(t, err)

		w := get(r, map[string]string{"Authorization": "Bearer " + tok})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		tok, err := auth.GenerateToken("u-1", "u@x.com", models.RoleUser, secret, time.Hour)
		require.NoError(t, err)

		w := get(r, map[string]string{"Authorization": "Bearer " + tok})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user":"u-1"`)
	})
}

func TestRefreshTokenMiddleware_CookiePreferredOnlyAsFallback(t *testing.T) {
	secret := []byte("refresh-guard-secret")
	r := guardedRouter(RefreshTokenMiddleware(secret))

	headerTok, err := auth.GenerateToken("from-header", "h@x.com", models.RoleUser, secret, time.Hour)
	require.NoError(t, err)
	cookieTok, err := auth.GenerateToken("from-cookie", "c@x.com", models.RoleUser, secret, time.Hour)
	require.NoError(t, err)

	t.Run("header wins when both present", func(t *testing.T) {
		w := get(r, map[string]string{"Authorization": "Bearer " + headerTok},
			&http.Cookie{Name: refreshTokenCookie, Value: cookieTok})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user":"from-header"`)
	})

	t.Run("cookie used without header", func(t *testing.T) {
		w := get(r, nil, &http.Cookie{Name: refreshTokenCookie, Value: cookieTok})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user":"from-cookie"`)
	})

	t.Run("neither present", func(t *testing.T) {
		w := get(r, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRoles_WithoutRoleInContext(t *testing.T) {
	// RequireRoles declared without a preceding auth guard must fail
	// closed.
	r := guardedRouter(RequireRoles(models.RoleAdmin))

	w := get(r, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoles_EmptyListAllowsAnyRole(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/protected",
		func(c *gin.Context) { c.Set(ctxRole, models.RoleUser) },
		RequireRoles(),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)

	w := get(r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
