package models

import "time"

// Roles a user can hold. Assigned at creation; there is no operation on the
// HTTP surface that escalates a role.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is a registered account. Email is unique as stored (no case
// normalization). PasswordHash is a bcrypt hash; the plaintext is never
// persisted.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
