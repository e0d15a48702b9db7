package auth

import "errors"

var (
	ErrInvalidInput      = errors.New("auth: invalid input")
	ErrInvalidToken      = errors.New("auth: invalid token")
	ErrUnknownPermission = errors.New("auth: unknown permission")
	ErrMissingSecret     = errors.New("auth: signing secret is not configured")
	ErrNotFound          = errors.New("auth: not found")
)
