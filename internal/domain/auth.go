package domain

import "time"

// IssuedToken is a signed session token handed to a client.
type IssuedToken struct {
	ID        string
	Value     string
	ExpiresAt time.Time
	ExpiresIn int
}

// PasswordReset tracks a single-use reset token by its JWT id.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenID   string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
