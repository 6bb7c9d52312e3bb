package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dvmarques/sessionauth/internal/server/auth"
	"github.com/dvmarques/sessionauth/internal/server/models"
)

// Context keys set by the guard middleware for handlers to consume.
const (
	ctxUserID       = "userID"
	ctxEmail        = "email"
	ctxRole         = "role"
	ctxRefreshToken = "refreshToken"
)

// refreshTokenCookie is the fallback cookie checked by the refresh
// guard when no Authorization header is present.
const refreshTokenCookie = "refresh_token"

// bearerToken extracts the token from an "Authorization: Bearer <t>"
// header.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errors.New("authorization header is required")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("invalid authorization header format")
	}
	return token, nil
}

// AccessTokenMiddleware verifies the bearer access token and attaches
// the decoded identity to the request context. Requests with a missing,
// malformed, expired, or forged token never reach the handler.
func AccessTokenMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RefreshTokenMiddleware verifies the refresh token, taken from the
// bearer header or, failing that, from the refresh_token cookie. The raw
// presented token is kept on the context so the core can match it
// against the stored fingerprint.
func RefreshTokenMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			if cookie, cerr := c.Cookie(refreshTokenCookie); cerr == nil && cookie != "" {
				token = cookie
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "refresh token is required"})
				return
			}
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxRefreshToken, token)
		c.Next()
	}
}

// RequireRoles rejects authenticated requests whose role claim is not in
// the route's declared allow-list. Declaring no roles allows everyone;
// the middleware is then pointless but harmless.
func RequireRoles(required ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ctxRole)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
			return
		}
		if !auth.RoleAllowed(required, role.(models.UserRole)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied: insufficient role"})
			return
		}
		c.Next()
	}
}
