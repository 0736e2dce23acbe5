package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUserIDRequired  = errors.New("user_id is required")
)
