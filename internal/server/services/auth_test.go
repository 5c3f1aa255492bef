package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dpolyakov/minimart/internal/common"
	"github.com/dpolyakov/minimart/internal/dbx"
	"github.com/dpolyakov/minimart/internal/logging"
	"github.com/dpolyakov/minimart/internal/server/auth"
	"github.com/dpolyakov/minimart/internal/server/config"
	"github.com/dpolyakov/minimart/internal/server/models"
	productsrepo "github.com/dpolyakov/minimart/internal/server/repositories/products"
	refreshtokensrepo "github.com/dpolyakov/minimart/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dpolyakov/minimart/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestIssuer() *auth.Issuer {
	return auth.NewIssuer([]byte("access-secret"), []byte("refresh-secret"), time.Hour, 7*24*time.Hour)
}

func newAuthService(t *testing.T, db *sql.DB, rm *fakeRepoManager, issuer *auth.Issuer) *AuthService {
	t.Helper()
	cfg := &config.Config{BcryptCost: bcrypt.MinCost} // low cost keeps tests fast
	return NewAuthService(db, rm, issuer, cfg, newTestLogger())
}

type fakeUsersRepo struct {
	exists    bool
	existsErr error

	createOut    *models.User
	createErr    error
	createCalled int

	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.createCalled++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "generated-id"
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return f.exists, f.existsErr
}

type fakeRefreshRepo struct {
	created map[string]string // token -> userID
	findErr error
	delErr  error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string) error {
	if f.created == nil {
		f.created = map[string]string{}
	}
	f.created[token] = userID
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	userID, ok := f.created[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &models.RefreshToken{Token: token, UserID: userID, CreatedAt: time.Now()}, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.created, token)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Products(db dbx.DBTX) productsrepo.Repository           { return nil }

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}},
		r: &fakeRefreshRepo{created: map[string]string{}},
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return string(h)
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	issuer := newTestIssuer()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm, issuer)

	result, err := s.Register(context.Background(), "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if result.User.Role != models.RoleUser {
		t.Fatalf("expected role USER, got %s", result.User.Role)
	}
	if result.User.PasswordHash == "Password1" {
		t.Fatal("plaintext password stored as hash")
	}

	claims, err := issuer.VerifyAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.UserID != result.User.ID || claims.Role != models.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	owner, ok := rm.r.created[result.Tokens.RefreshToken]
	if !ok {
		t.Fatal("refresh token was not persisted")
	}
	if owner != result.User.ID {
		t.Fatalf("stored refresh token owner %s, want %s", owner, result.User.ID)
	}
}

func TestRegister_DuplicateEmailFastPath(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.u.exists = true
	s := newAuthService(t, db, rm, newTestIssuer())

	_, err := s.Register(context.Background(), "alice@example.com", "Password1")
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if rm.u.createCalled != 0 {
		t.Fatal("Create must not be called when the email already exists")
	}
	if len(rm.r.created) != 0 {
		t.Fatal("no refresh token may be stored for a failed registration")
	}
}

func TestRegister_DuplicateEmailConstraintRace(t *testing.T) {
	// The existence check passed but a concurrent registration won the
	// insert: the unique constraint is the authoritative guard.
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	rm.u.createErr = common.ErrEmailTaken
	s := newAuthService(t, db, rm, newTestIssuer())

	_, err := s.Register(context.Background(), "alice@example.com", "Password1")
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(rm.r.created) != 0 {
		t.Fatal("no refresh token may survive a rolled-back registration")
	}
}

func TestRegister_ExistsCheckFails(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.u.existsErr = errors.New("db down")
	s := newAuthService(t, db, rm, newTestIssuer())

	if _, err := s.Register(context.Background(), "a@b.c", "pw"); err == nil {
		t.Fatal("expected error")
	}
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	rm := newFakeRepoManager()
	rm.u.byEmail["alice@example.com"] = &models.User{
		ID:           "u1",
		Email:        "alice@example.com",
		PasswordHash: hashPassword(t, "Password1"),
		Role:         models.RoleUser,
	}
	s := newAuthService(t, db, rm, issuer)

	result, err := s.Login(context.Background(), "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	claims, err := issuer.VerifyAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, ok := rm.r.created[result.Tokens.RefreshToken]; !ok {
		t.Fatal("refresh token was not persisted")
	}
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.u.byEmail["alice@example.com"] = &models.User{
		ID:           "u1",
		Email:        "alice@example.com",
		PasswordHash: hashPassword(t, "Password1"),
		Role:         models.RoleUser,
	}
	s := newAuthService(t, db, rm, newTestIssuer())

	_, errWrongPassword := s.Login(context.Background(), "alice@example.com", "nope")
	_, errUnknownEmail := s.Login(context.Background(), "ghost@example.com", "Password1")

	if !errors.Is(errWrongPassword, common.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", errWrongPassword)
	}
	if !errors.Is(errUnknownEmail, common.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", errUnknownEmail)
	}
	if errWrongPassword.Error() != errUnknownEmail.Error() {
		t.Fatalf("error messages differ by cause: %q vs %q", errWrongPassword, errUnknownEmail)
	}
}

// --- Refresh ---

func TestRefresh_Success_ReusesRefreshToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	rm := newFakeRepoManager()
	rm.u.byID["u1"] = &models.User{ID: "u1", Email: "a@b.c", Role: models.RoleAdmin}
	s := newAuthService(t, db, rm, issuer)

	refresh, err := issuer.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}
	rm.r.created[refresh] = "u1"

	pair, err := s.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	if pair.RefreshToken != refresh {
		t.Fatal("refresh token must be returned unchanged")
	}
	claims, err := issuer.VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("new access token does not verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != models.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefresh_UnverifiableToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, newFakeRepoManager(), newTestIssuer())

	if _, err := s.Refresh(context.Background(), "garbage"); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_TokenNotStored(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	s := newAuthService(t, db, newFakeRepoManager(), issuer)

	// Cryptographically valid but never persisted (or already revoked).
	refresh, _ := issuer.IssueRefreshToken("u1")

	if _, err := s.Refresh(context.Background(), refresh); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_OwnerMismatch(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm, issuer)

	refresh, _ := issuer.IssueRefreshToken("u1")
	rm.r.created[refresh] = "someone-else"

	if _, err := s.Refresh(context.Background(), refresh); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_OwnerDeleted(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm, issuer)

	refresh, _ := issuer.IssueRefreshToken("u1")
	rm.r.created[refresh] = "u1"
	// no user with id u1

	if _, err := s.Refresh(context.Background(), refresh); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// --- Logout ---

func TestLogout_IsIdempotentAndRevokes(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	rm := newFakeRepoManager()
	rm.u.byID["u1"] = &models.User{ID: "u1", Role: models.RoleUser}
	s := newAuthService(t, db, rm, issuer)

	refresh, _ := issuer.IssueRefreshToken("u1")
	rm.r.created[refresh] = "u1"

	if err := s.Logout(context.Background(), refresh); err != nil {
		t.Fatalf("first Logout error: %v", err)
	}
	if err := s.Logout(context.Background(), refresh); err != nil {
		t.Fatalf("second Logout error: %v", err)
	}

	if _, err := s.Refresh(context.Background(), refresh); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout must fail, got %v", err)
	}
}

// --- GetProfile / VerifyAccessToken ---

func TestGetProfile(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.u.byID["u1"] = &models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser}
	s := newAuthService(t, db, rm, newTestIssuer())

	user, err := s.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if user.Email != "a@b.c" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := s.GetProfile(context.Background(), "ghost"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestVerifyAccessToken_Delegates(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	issuer := newTestIssuer()
	s := newAuthService(t, db, newFakeRepoManager(), issuer)

	token, _ := issuer.IssueAccessToken("u1", models.RoleUser)
	claims, err := s.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := s.VerifyAccessToken("garbage"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
