package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"clipstream/internal/auth"
	"clipstream/internal/domain"
	"clipstream/internal/repository"
	"clipstream/internal/storage"
)

// RegisterInput carries the profile fields and staged media paths for a
// registration. AvatarPath is required; CoverPath may be empty.
type RegisterInput struct {
	FullName   string
	Username   string
	Email      string
	Password   string
	AvatarPath string
	CoverPath  string
}

// UserService handles account creation.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
}

type userService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	storage    storage.Service
	uploadOpts storage.UploadOptions
	logger     *logrus.Logger
}

func NewUserService(users repository.UserRepository, hasher *auth.PasswordHasher, store storage.Service, uploadOpts storage.UploadOptions, logger *logrus.Logger) UserService {
	return &userService{
		users:      users,
		hasher:     hasher,
		storage:    store,
		uploadOpts: uploadOpts,
		logger:     logger,
	}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := strings.TrimSpace(input.Password)

	switch {
	case fullName == "":
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	case username == "":
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	case input.AvatarPath == "":
		return nil, fmt.Errorf("%w: avatar file is required", ErrInvalidInput)
	}

	if _, err := s.users.GetByIdentity(ctx, email, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	avatarURL, err := s.storage.UploadFile(ctx, input.AvatarPath, s.uploadOpts)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	// Cover image is optional and its upload failure is not fatal; the relay
	// already removed the staged file.
	var coverURL string
	if input.CoverPath != "" {
		coverURL, err = s.storage.UploadFile(ctx, input.CoverPath, s.uploadOpts)
		if err != nil {
			s.logger.Warnf("upload cover image: %v", err)
			coverURL = ""
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		AvatarURL:    avatarURL,
		CoverURL:     coverURL,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}
