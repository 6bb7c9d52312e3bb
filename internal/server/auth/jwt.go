// Package auth implements the credential primitives of the service:
// one-way hashing for stored secrets, signed token issue/verify, and the
// role allow-list decision.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dvmarques/sessionauth/internal/common"
	"github.com/dvmarques/sessionauth/internal/server/models"
)

// Claims carries the identity snapshot encoded into both access and
// refresh tokens. Subject holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// parser accepts HS256 only and requires an expiry claim.
var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{"HS256"}),
	jwt.WithExpirationRequired(),
)

// GenerateToken signs a token for the given identity with the supplied
// secret and validity window. Access and refresh tokens use the same
// claim shape but must be signed with distinct secrets.
func GenerateToken(userID, email string, role models.UserRole, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the decoded
// claims. Failures map to one sentinel per reason: common.ErrTokenExpired,
// common.ErrBadSignature, or common.ErrMalformedToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrBadSignature
		default:
			return nil, common.ErrMalformedToken
		}
	}

	if !token.Valid {
		return nil, common.ErrBadSignature
	}

	return claims, nil
}
