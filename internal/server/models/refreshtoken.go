package models

import "time"

// RefreshToken is the server-side record of an issued refresh token. A user
// may hold several at once. Expiry lives inside the signed token itself, so
// an expired row that was never deleted still fails verification by
// signature, not by absence.
type RefreshToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}
