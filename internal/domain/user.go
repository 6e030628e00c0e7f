package domain

import "time"

// User represents a registered account. RefreshToken is the single
// outstanding refresh token for the account; empty means no active session.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	AvatarURL    string
	CoverURL     string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
