package users

import "errors"

var (
	ErrUserNotFound       = errors.New("users: user not found")
	ErrEmailTaken         = errors.New("users: email already registered")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	ErrInvalidEmail       = errors.New("users: a valid email is required")
	ErrPasswordTooShort   = errors.New("users: password must be at least 8 characters")
	ErrNameRequired       = errors.New("users: first and last name are required")
)
