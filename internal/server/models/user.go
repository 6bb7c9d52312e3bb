// Package models contains the persistent data records used by the server.
package models

import "time"

// UserRole is the coarse authorization role stored on a user record.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an identity record. RefreshTokenHash holds the argon2 digest of
// the single currently-valid refresh token, or nil when the user has no
// active session. The plaintext password and the plaintext refresh token
// are never stored.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	Role             UserRole
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
