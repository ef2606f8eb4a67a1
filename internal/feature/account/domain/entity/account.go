// Package entity defines the domain entities for the account feature.
package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"account_backend/internal/feature/account/domain"
)

// MinNameLength is the minimum number of characters in an account name.
const MinNameLength = 2

// Account represents a registered user account.
type Account struct {
	// ID is the opaque identifier assigned by the store on creation.
	ID string

	// Name is the display name, trimmed.
	Name string

	// Email is the normalized (trimmed, lowercased) email address.
	// It is unique across all accounts.
	Email string

	// PasswordSecret is the one-way hash of the password.
	// It is empty unless the store was asked to include it.
	PasswordSecret string

	// IsActive gates whether login may succeed.
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SafeAccount is the externally visible projection of an Account.
// It has no secret field.
type SafeAccount struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount builds an active Account ready to be persisted.
// The store assigns ID and timestamps.
func NewAccount(name, email, passwordSecret string) (*Account, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if utf8.RuneCountInString(name) < MinNameLength {
		return nil, fmt.Errorf("%w: name must be at least %d characters long", domain.ErrValidation, MinNameLength)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if passwordSecret == "" {
		return nil, fmt.Errorf("%w: password secret is required", domain.ErrValidation)
	}

	return &Account{
		Name:           name,
		Email:          email,
		PasswordSecret: passwordSecret,
		IsActive:       true,
	}, nil
}

// Safe returns the projection of the account without its secret.
func (a *Account) Safe() SafeAccount {
	return SafeAccount{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// WithoutSecret returns a copy of the account with PasswordSecret cleared.
func (a *Account) WithoutSecret() *Account {
	cp := *a
	cp.PasswordSecret = ""
	return &cp
}
