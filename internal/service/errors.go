package service

import "errors"

var (
	// ErrInvalidCredentials is returned for any rejected login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering a taken username or email.
	ErrUserExists = errors.New("user already exists")
	// ErrUnauthorized is returned when a user id and token do not match.
	ErrUnauthorized = errors.New("unauthorized")
)
