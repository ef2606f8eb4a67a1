// Package domain defines domain-level errors for the account feature.
package domain

import "errors"

// Domain errors for account operations.
// Upper layers match them with errors.Is and map them to HTTP status codes.
var (
	// ErrValidation indicates malformed input such as a missing or too-short field.
	// It is usually wrapped with a message naming the offending field.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateAccount indicates that an account with the given email already exists.
	// This is returned during registration.
	ErrDuplicateAccount = errors.New("email already in use")

	// ErrInvalidCredentials indicates that login failed.
	// Unknown email, wrong password and deactivated account all return this same value.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrConstraintViolation indicates that the storage layer rejected an insert
	// because of its uniqueness constraint on email.
	ErrConstraintViolation = errors.New("unique constraint violated")

	// ErrAccountNotFound indicates that no account matches the lookup.
	// It never leaves the usecase layer.
	ErrAccountNotFound = errors.New("account not found")
)
