// Package services contains the business logic of the minimart services.
// This file implements AuthService: credential registration and login,
// access/refresh token issuance, refresh-token validation, and profile
// retrieval.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpolyakov/minimart/internal/common"
	"github.com/dpolyakov/minimart/internal/dbx"
	"github.com/dpolyakov/minimart/internal/logging"
	"github.com/dpolyakov/minimart/internal/server/auth"
	"github.com/dpolyakov/minimart/internal/server/config"
	"github.com/dpolyakov/minimart/internal/server/models"
	"github.com/dpolyakov/minimart/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult is what Register and Login hand back to the transport layer.
type AuthResult struct {
	User   *models.User
	Tokens models.TokenPair
}

// AuthService orchestrates the credential store and the token issuer. It is
// constructed once at process start and shared across request handlers; it
// holds no mutable per-call state.
//
// Refresh tokens are NOT rotated on refresh: a refresh call mints a new
// access token and returns the refresh token unchanged. A stolen refresh
// token therefore stays usable until it expires or the owner logs out.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	bcryptCost  int
	log         logging.Logger
}

// NewAuthService constructs an AuthService from injected collaborators.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		bcryptCost:  cfg.BcryptCost,
		log:         log.With("module", "auth_service"),
	}
}

// Register creates a user with role USER and issues its first token pair.
// A duplicate email yields common.ErrEmailTaken without creating a record:
// ExistsByEmail is the fast path, the store's unique constraint catches the
// concurrent-registration race.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	userRepo := s.repomanager.Users(s.db)

	exists, err := userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, common.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var result *AuthResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.RoleUser,
		})
		if err != nil {
			if errors.Is(err, common.ErrEmailTaken) {
				return common.ErrEmailTaken
			}
			return fmt.Errorf("error creating user: %w", err)
		}

		pair, err := s.issueTokenPair(ctx, user, tx)
		if err != nil {
			return err
		}

		result = &AuthResult{User: user, Tokens: pair}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", result.User.ID)
	return result, nil
}

// Login verifies the credentials and issues a fresh token pair. An unknown
// email and a wrong password both return common.ErrInvalidCredentials so
// callers cannot probe which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn(ctx, "login failed", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a valid, stored refresh token for a new access token.
// The refresh token itself is returned unchanged. A token that fails
// verification, was never stored, was deleted by logout, or whose stored
// owner does not match the signed claim yields common.ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if stored.UserID != claims.UserID {
		s.log.Warn(ctx, "refresh token owner mismatch", "stored", stored.UserID, "claimed", claims.UserID)
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	access, err := s.issuer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Logout deletes the refresh token from the store. Logging out with an
// unknown or already-deleted token succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// GetProfile returns the user with the given id.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

// VerifyAccessToken validates an access token and returns its claims. Any
// failure surfaces as common.ErrInvalidToken.
func (s *AuthService) VerifyAccessToken(token string) (*auth.AccessClaims, error) {
	return s.issuer.VerifyAccessToken(token)
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User, db dbx.DBTX) (models.TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error generating access token: %w", err)
	}

	refresh, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error generating refresh token: %w", err)
	}

	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refresh); err != nil {
		return models.TokenPair{}, fmt.Errorf("error saving refresh token: %w", err)
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
