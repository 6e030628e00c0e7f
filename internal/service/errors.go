package service

import "errors"

var (
	// ErrInvalidInput indicates missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound indicates no user matches the requested identity.
	ErrNotFound = errors.New("user not found")
	// ErrUnauthenticated indicates a missing session or token context.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUserExists is returned when registering with an already-taken
	// username or email.
	ErrUserExists = errors.New("user already exists")
	// ErrTokenReused is returned when a refresh token no longer matches the
	// stored value, signalling replay of an already-rotated token.
	ErrTokenReused = errors.New("refresh token reused")
)
