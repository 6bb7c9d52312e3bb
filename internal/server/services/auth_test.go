package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dvmarques/sessionauth/internal/common"
	"github.com/dvmarques/sessionauth/internal/dbx"
	"github.com/dvmarques/sessionauth/internal/server/auth"
	"github.com/dvmarques/sessionauth/internal/server/config"
	"github.com/dvmarques/sessionauth/internal/server/models"
	usersrepo "github.com/dvmarques/sessionauth/internal/server/repositories/users"
)

// --- fakes ---

// memUsersRepo is an in-memory users.Repository with the same
// compare-and-swap semantics as the postgres implementation.
type memUsersRepo struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{byID: map[string]*models.User{}}
}

func (m *memUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return nil, common.ErrorConflict
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	m.byID[user.ID] = &cp
	return user, nil
}

func (m *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsersRepo) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshTokenHash = hash
	return nil
}

func (m *memUsersRepo) RotateRefreshTokenHash(ctx context.Context, id, expectedHash, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != expectedHash {
		return common.ErrorConflict
	}
	u.RefreshTokenHash = &newHash
	return nil
}

type fakeManager struct {
	repo usersrepo.Repository
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (f *fakeManager) Users(db dbx.DBTX) usersrepo.Repository { return f.repo }

// --- helpers ---

func newAuthService(t *testing.T) (*AuthService, *memUsersRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}

	repo := newMemUsersRepo()
	return NewAuthService(db, &fakeManager{repo: repo}, cfg), repo, mock
}

// expectSignupTx registers the transaction a single SignUp performs.
func expectSignupTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func signUp(t *testing.T, s *AuthService, mock sqlmock.Sqlmock, email, password string) *TokenPair {
	t.Helper()
	expectSignupTx(mock)
	pair, err := s.SignUp(context.Background(), email, password)
	if err != nil {
		t.Fatalf("SignUp(%q) error: %v", email, err)
	}
	return pair
}

func userIDByEmail(t *testing.T, repo *memUsersRepo, email string) string {
	t.Helper()
	u, err := repo.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("GetByEmail(%q) error: %v", email, err)
	}
	return u.ID
}

// --- tests ---

func TestSignUp_StoresHashesNotPlaintext(t *testing.T) {
	s, repo, mock := newAuthService(t)

	pair := signUp(t, s, mock, "a@x.com", "secret1")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair, got %+v", pair)
	}

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if u.Role != models.RoleUser {
		t.Fatalf("expected role user, got %q", u.Role)
	}
	if u.PasswordHash == "secret1" || !auth.VerifySecret(u.PasswordHash, "secret1") {
		t.Fatalf("password must be stored as a verifying hash")
	}
	if u.RefreshTokenHash == nil || !auth.VerifySecret(*u.RefreshTokenHash, pair.RefreshToken) {
		t.Fatalf("refresh token hash must verify against the issued token")
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	s, _, mock := newAuthService(t)

	signUp(t, s, mock, "a@x.com", "secret1")

	_, err := s.SignUp(context.Background(), "a@x.com", "other")
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestSignIn_Success_RotatesRefreshHash(t *testing.T) {
	s, repo, mock := newAuthService(t)

	first := signUp(t, s, mock, "a@x.com", "secret1")

	second, err := s.SignIn(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if u.RefreshTokenHash == nil {
		t.Fatal("expected an active session")
	}
	if !auth.VerifySecret(*u.RefreshTokenHash, second.RefreshToken) {
		t.Fatal("stored hash must verify against the latest refresh token")
	}
	if auth.VerifySecret(*u.RefreshTokenHash, first.RefreshToken) {
		t.Fatal("stored hash must no longer verify against the rotated-out token")
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	s, _, mock := newAuthService(t)

	signUp(t, s, mock, "a@x.com", "secret1")

	_, err := s.SignIn(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want common.ErrorUnauthorized, got %v", err)
	}
}

func TestSignIn_UnknownEmailSameError(t *testing.T) {
	s, _, _ := newAuthService(t)

	_, err := s.SignIn(context.Background(), "ghost@x.com", "whatever")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want common.ErrorUnauthorized, got %v", err)
	}
}

func TestRefresh_RotationScenario(t *testing.T) {
	s, repo, mock := newAuthService(t)
	ctx := context.Background()

	pair1 := signUp(t, s, mock, "a@x.com", "secret1")
	userID := userIDByEmail(t, repo, "a@x.com")

	pair2, err := s.Refresh(ctx, userID, pair1.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh error: %v", err)
	}
	if pair2.RefreshToken == pair1.RefreshToken {
		t.Fatal("rotation must issue a different refresh token")
	}

	// Replaying the rotated-out token must fail.
	if _, err := s.Refresh(ctx, userID, pair1.RefreshToken); !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("replayed token: want common.ErrorForbidden, got %v", err)
	}

	// The current token still works.
	pair3, err := s.Refresh(ctx, userID, pair2.RefreshToken)
	if err != nil {
		t.Fatalf("second Refresh error: %v", err)
	}
	if pair3.RefreshToken == pair2.RefreshToken {
		t.Fatal("rotation must issue a different refresh token")
	}
}

func TestRefresh_UnknownUser(t *testing.T) {
	s, _, _ := newAuthService(t)

	_, err := s.Refresh(context.Background(), "nope", "token")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want common.ErrorUnauthorized, got %v", err)
	}
}

func TestRefresh_LostRaceIsForbidden(t *testing.T) {
	s, repo, mock := newAuthService(t)
	ctx := context.Background()

	pair := signUp(t, s, mock, "a@x.com", "secret1")
	userID := userIDByEmail(t, repo, "a@x.com")

	// Simulate a concurrent rotation landing between the read and the
	// swap: the stored hash changes under us.
	other := "other-hash"
	if err := repo.SetRefreshTokenHash(ctx, userID, &other); err != nil {
		t.Fatalf("SetRefreshTokenHash error: %v", err)
	}

	_, err := s.Refresh(ctx, userID, pair.RefreshToken)
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("want common.ErrorForbidden, got %v", err)
	}
}

func TestLogout_ClearsSessionAndIsIdempotent(t *testing.T) {
	s, repo, mock := newAuthService(t)
	ctx := context.Background()

	pair := signUp(t, s, mock, "a@x.com", "secret1")
	userID := userIDByEmail(t, repo, "a@x.com")

	if err := s.Logout(ctx, userID); err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	// Refresh after logout: no active session.
	if _, err := s.Refresh(ctx, userID, pair.RefreshToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want common.ErrorUnauthorized, got %v", err)
	}

	// Logging out again is not an error, and neither is logging out an
	// unknown user.
	if err := s.Logout(ctx, userID); err != nil {
		t.Fatalf("repeated Logout error: %v", err)
	}
	if err := s.Logout(ctx, "ghost"); err != nil {
		t.Fatalf("Logout of unknown user error: %v", err)
	}
}
