// Package users declares the server-side repository contract for user
// records and their refresh-token slot.
package users

import (
	"context"

	"github.com/dvmarques/sessionauth/internal/server/models"
)

// Repository defines persistence operations for user records. The
// refresh-token slot is single-valued: a user holds at most one valid
// refresh-token hash at a time.
type Repository interface {
	// Create inserts a new user. A duplicate email yields
	// common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by email, common.ErrorNotFound when
	// absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks a user up by ID, common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// SetRefreshTokenHash unconditionally overwrites the refresh-token
	// slot. A nil hash clears it (logout).
	SetRefreshTokenHash(ctx context.Context, id string, hash *string) error

	// RotateRefreshTokenHash replaces the slot only if it still holds
	// expectedHash (compare-and-swap, one UPDATE statement). A lost race
	// or a stale expectation yields common.ErrorConflict.
	RotateRefreshTokenHash(ctx context.Context, id, expectedHash, newHash string) error
}
