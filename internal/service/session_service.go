package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"clipstream/internal/auth"
	"clipstream/internal/domain"
	"clipstream/internal/repository"
)

// TokenPair carries one freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService drives the login/refresh/logout lifecycle. At most one
// refresh token is valid per user at any time; every successful login or
// refresh replaces it.
type SessionService interface {
	Login(ctx context.Context, email, username, password string) (*TokenPair, *domain.User, error)
	Logout(ctx context.Context, userID int64) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
}

type sessionService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
}

func NewSessionService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer) SessionService {
	return &sessionService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *sessionService) Login(ctx context.Context, email, username, password string) (*TokenPair, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))
	if email == "" && username == "" {
		return nil, nil, fmt.Errorf("%w: username or email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return nil, nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	user, err := s.users.GetByIdentity(ctx, email, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	// Overwrites any previous session; single active session by construction.
	if err := s.users.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return pair, sanitizeUser(user), nil
}

// Logout clears the stored refresh token. Logging out an already-logged-out
// user succeeds silently.
func (s *sessionService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.UpdateRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	// A validly signed token is not enough: it must also be the one
	// currently stored. Anything else is a replay of a rotated token.
	if subtle.ConstantTimeCompare([]byte(refreshToken), []byte(user.RefreshToken)) != 1 {
		return nil, ErrTokenReused
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// Conditional swap so two concurrent refreshes cannot both rotate the
	// same token; the loser observes a conflict and reports reuse.
	if err := s.users.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrRotationConflict) {
			return nil, ErrTokenReused
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return pair, nil
}

// ChangePassword replaces the stored hash. The current refresh token is left
// intact, so an active session survives a password change.
func (s *sessionService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if strings.TrimSpace(currentPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: current and new password are required", ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}
	return nil
}

func (s *sessionService) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *sessionService) issuePair(userID int64) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// sanitizeUser strips the password hash and refresh token from any user
// representation that leaves the service layer.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		CoverURL:  user.CoverURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
