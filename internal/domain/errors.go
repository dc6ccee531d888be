package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrMissingFields is returned when a required registration field is empty.
	ErrMissingFields = fmt.Errorf("%w: all required fields must be filled", ErrValidation)
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrValidation)
	// ErrPasswordTooShort is returned for passwords under MinPasswordLength characters.
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	// ErrInvalidAttempt is returned for a missing passage or out-of-range quiz results.
	ErrInvalidAttempt = fmt.Errorf("%w: passage id required, score must be 0-100 and counts non-negative", ErrValidation)

	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrUserNotFound indicates no stored user matches the lookup.
	ErrUserNotFound = errors.New("no account found with this email")
	// ErrUnknownUser indicates no stored record has the given user id.
	ErrUnknownUser = errors.New("no stored account with this id")
	// ErrInvalidCredentials indicates the password did not match the stored digest.
	ErrInvalidCredentials = errors.New("incorrect password")
	// ErrNotLoggedIn is reported by callers when an operation needs a session.
	ErrNotLoggedIn = errors.New("no user is logged in")
)
