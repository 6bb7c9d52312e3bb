// Package services contains server-side business logic. This file
// implements AuthService, which handles signup, signin, logout, and
// refresh-token rotation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dvmarques/sessionauth/internal/common"
	"github.com/dvmarques/sessionauth/internal/dbx"
	"github.com/dvmarques/sessionauth/internal/server/auth"
	"github.com/dvmarques/sessionauth/internal/server/config"
	"github.com/dvmarques/sessionauth/internal/server/models"
	"github.com/dvmarques/sessionauth/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. Both encode the same identity snapshot; only the refresh
// token's hash is ever persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides the authentication operations:
//   - SignUp: create a user and start a session
//   - SignIn: verify credentials and mint tokens
//   - Logout: clear the refresh-token slot
//   - Refresh: rotate the refresh token and mint a new pair
//
// A user holds at most one valid refresh token; every issued pair
// overwrites the stored hash, so the previous refresh token stops
// working the moment a new one is handed out.
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewAuthService constructs an AuthService using repositories and server
// config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// SignUp creates a new user with the plain user role and returns its
// first token pair. A taken email yields common.ErrorConflict.
// Privileged roles are provisioned out of band with the createadmin
// tool.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	passwordHash, err := auth.HashSecret(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshHash, err := auth.HashSecret(pair.RefreshToken)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// Insert and store the refresh hash in one transaction so a half
	// created user never exists.
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)
		if _, err := repoTx.Create(ctx, user); err != nil {
			return err
		}
		return repoTx.SetRefreshTokenHash(ctx, user.ID, &refreshHash)
	}); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// SignIn verifies the email/password pair and, on success, returns a new
// TokenPair and rotates the stored refresh hash. A missing user and a
// wrong password are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !auth.VerifySecret(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.hashAndStore(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// Logout clears the user's refresh-token slot. Logging out an already
// logged-out (or unknown) user is not an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)

	if err := repo.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	return nil
}

// Refresh validates the presented refresh token against the stored hash,
// rotates it, and returns a fresh TokenPair. A user without an active
// session yields common.ErrorUnauthorized; a token that does not match
// the single currently-valid one (including one that was already rotated
// out) yields common.ErrorForbidden.
func (s *AuthService) Refresh(ctx context.Context, userID, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if user.RefreshTokenHash == nil {
		return nil, common.ErrorUnauthorized
	}

	if !auth.VerifySecret(*user.RefreshTokenHash, refreshToken) {
		return nil, common.ErrorForbidden
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	newHash, err := auth.HashSecret(pair.RefreshToken)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// Compare-and-swap on the stored hash: if a concurrent refresh
	// already rotated the slot, this one loses and the presented token
	// is treated as replayed.
	if err := repo.RotateRefreshTokenHash(ctx, user.ID, *user.RefreshTokenHash, newHash); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorForbidden
		}
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// issueTokenPair derives both tokens from the same identity snapshot.
// The two tokens are signed with independent secrets so neither can be
// used to forge the other.
func (s *AuthService) issueTokenPair(user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// hashAndStore persists the hash of a freshly issued refresh token,
// replacing whatever the slot held.
func (s *AuthService) hashAndStore(ctx context.Context, userID, refreshToken string) error {
	hash, err := auth.HashSecret(refreshToken)
	if err != nil {
		return err
	}
	repo := s.repomanager.Users(s.db)
	return repo.SetRefreshTokenHash(ctx, userID, &hash)
}
