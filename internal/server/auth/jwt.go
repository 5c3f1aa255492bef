// Package auth implements the token issuer: stateless creation and
// verification of signed, time-boxed JWTs (HS256). Access and refresh
// tokens are signed with distinct secrets, so compromise of one secret
// does not forge the other token type.
package auth

import (
	"time"

	"github.com/dpolyakov/minimart/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims embedded in an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Role   string `json:"role"`
}

// RefreshClaims are the claims embedded in a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Issuer creates and verifies tokens. It performs no I/O and is safe for
// concurrent use.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccessToken signs an access token for userID carrying its role,
// valid for the configured access TTL from now.
func (i *Issuer) IssueAccessToken(userID, role string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		UserID: userID,
		Role:   role,
	})
	return token.SignedString(i.accessSecret)
}

// IssueRefreshToken signs a refresh token for userID, valid for the
// configured refresh TTL from now.
func (i *Issuer) IssueRefreshToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
		UserID: userID,
	})
	return token.SignedString(i.refreshSecret)
}

// VerifyAccessToken parses and validates an access token. Malformed tokens,
// bad signatures and expired tokens all come back as common.ErrInvalidToken.
func (i *Issuer) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(tokenString, claims, i.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken is VerifyAccessToken for refresh tokens, using the
// refresh secret.
func (i *Issuer) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.verify(tokenString, claims, i.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
