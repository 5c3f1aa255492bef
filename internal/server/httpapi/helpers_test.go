package httpapi

import (
	"context"
	"database/sql"
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
	"github.com/dpolyakov/minimart/internal/server/services"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// In-memory repositories backing the handler tests. They satisfy the same
// contracts as the Postgres implementations, including the error semantics
// the service layer depends on.

type memUsersRepo struct {
	byID map[string]*models.User
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{byID: map[string]*models.User{}}
}

func (m *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, common.ErrEmailTaken
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (m *memUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

type memRefreshRepo struct {
	byToken map[string]*models.RefreshToken
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{byToken: map[string]*models.RefreshToken{}}
}

func (m *memRefreshRepo) Create(ctx context.Context, userID string, token string) error {
	m.byToken[token] = &models.RefreshToken{Token: token, UserID: userID, CreatedAt: time.Now()}
	return nil
}

func (m *memRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.byToken[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rt, nil
}

func (m *memRefreshRepo) Delete(ctx context.Context, token string) error {
	delete(m.byToken, token)
	return nil
}

type memProductsRepo struct {
	byID  map[string]*models.Product
	order []string
}

func newMemProductsRepo() *memProductsRepo {
	return &memProductsRepo{byID: map[string]*models.Product{}}
}

func (m *memProductsRepo) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.byID[p.ID] = p
	m.order = append(m.order, p.ID)
	return p, nil
}

func (m *memProductsRepo) List(ctx context.Context) ([]*models.Product, error) {
	out := make([]*models.Product, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.byID[m.order[i]])
	}
	return out, nil
}

func (m *memProductsRepo) Get(ctx context.Context, id string) (*models.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

type memRepoManager struct {
	users    *memUsersRepo
	tokens   *memRefreshRepo
	products *memProductsRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		users:    newMemUsersRepo(),
		tokens:   newMemRefreshRepo(),
		products: newMemProductsRepo(),
	}
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.users }
func (m *memRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.tokens }
func (m *memRepoManager) Products(db dbx.DBTX) productsrepo.Repository           { return m.products }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testEnv bundles a fully wired auth service over in-memory storage.
type testEnv struct {
	db     *sql.DB
	rm     *memRepoManager
	issuer *auth.Issuer
	auth   *services.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// Register runs inside a transaction; the in-memory repos ignore the
	// handle but database/sql still sees begin/commit pairs.
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 16; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	cfg := &config.Config{BcryptCost: bcrypt.MinCost}
	rm := newMemRepoManager()
	issuer := auth.NewIssuer([]byte("access-secret"), []byte("refresh-secret"), time.Hour, 7*24*time.Hour)

	return &testEnv{
		db:     db,
		rm:     rm,
		issuer: issuer,
		auth:   services.NewAuthService(db, rm, issuer, cfg, testLogger()),
	}
}
