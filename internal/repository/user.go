package repository

import (
	"context"
	"errors"

	"clipstream/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a create would violate username/email uniqueness.
	ErrDuplicate = errors.New("user already exists")
	// ErrRotationConflict is returned when a conditional refresh-token rotation
	// finds the stored token no longer matches the expected value.
	ErrRotationConflict = errors.New("refresh token rotation conflict")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByIdentity matches on email or username; either may be empty.
	GetByIdentity(ctx context.Context, email, username string) (*domain.User, error)
	// UpdateRefreshToken unconditionally replaces the stored refresh token.
	// An empty token clears the slot.
	UpdateRefreshToken(ctx context.Context, id int64, token string) error
	// RotateRefreshToken replaces the stored refresh token only if it still
	// equals current; otherwise it fails with ErrRotationConflict.
	RotateRefreshToken(ctx context.Context, id int64, current, next string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
