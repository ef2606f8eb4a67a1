// Package usecase implements the credential-handling business logic for the account feature.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
)

const (
	// minPasswordLength is the minimum number of characters in a new password.
	minPasswordLength = 6
	// maxPasswordBytes is bcrypt's input limit.
	maxPasswordBytes = 72

	// dummyHash is verified against when the account is missing or inactive,
	// so every login costs one bcrypt comparison.
	dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

// AccountRepository abstracts the persistence layer for accounts.
// Following Go conventions, the consumer (usecase) defines the interface.
type AccountRepository interface {
	// FindByEmail returns the account with the given normalized email.
	// PasswordSecret is populated only when includeSecret is true.
	// It returns domain.ErrAccountNotFound if no account matches.
	FindByEmail(ctx context.Context, email string, includeSecret bool) (*entity.Account, error)

	// Create persists a new account and sets its ID and timestamps.
	// It returns domain.ErrConstraintViolation if the storage uniqueness
	// constraint on email rejects the insert.
	Create(ctx context.Context, account *entity.Account) error
}

// PasswordHasher computes and checks one-way password hashes.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, hash, plain string) (bool, error)
}

// CredentialService registers and authenticates accounts.
type CredentialService struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(accounts AccountRepository, hasher PasswordHasher) *CredentialService {
	return &CredentialService{
		accounts: accounts,
		hasher:   hasher,
	}
}

// validateRegistration checks the raw registration input.
func validateRegistration(name, email, password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < entity.MinNameLength {
		return fmt.Errorf("%w: name must be at least %d characters long", domain.ErrValidation, entity.MinNameLength)
	}
	if entity.NormalizeEmail(email) == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", domain.ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes long", domain.ErrValidation, maxPasswordBytes)
	}
	return nil
}

// Register creates a new account and returns its safe projection.
// It fails with domain.ErrDuplicateAccount if the normalized email is taken,
// whether that is detected by the lookup or by the store's unique constraint.
func (s *CredentialService) Register(ctx context.Context, name, email, password string) (entity.SafeAccount, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return entity.SafeAccount{}, err
	}
	email = entity.NormalizeEmail(email)

	existing, err := s.accounts.FindByEmail(ctx, email, false)
	switch {
	case err == nil && existing != nil:
		return entity.SafeAccount{}, domain.ErrDuplicateAccount
	case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
		return entity.SafeAccount{}, fmt.Errorf("failed to look up account: %w", err)
	}

	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return entity.SafeAccount{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := entity.NewAccount(name, email, hashed)
	if err != nil {
		return entity.SafeAccount{}, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// A concurrent registration won between the lookup and the insert.
		if errors.Is(err, domain.ErrConstraintViolation) {
			return entity.SafeAccount{}, domain.ErrDuplicateAccount
		}
		return entity.SafeAccount{}, fmt.Errorf("failed to create account: %w", err)
	}

	return account.Safe(), nil
}

// Authenticate checks email and password and returns the account's safe projection.
// Unknown email, inactive account and wrong password all fail with
// domain.ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, email, plain string) (entity.SafeAccount, error) {
	email = entity.NormalizeEmail(email)

	account, err := s.accounts.FindByEmail(ctx, email, true)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return entity.SafeAccount{}, fmt.Errorf("failed to look up account: %w", err)
	}

	// Over-long input can never be a registered password.
	usable := err == nil && account != nil && account.IsActive && account.PasswordSecret != "" &&
		len(plain) <= maxPasswordBytes

	hash := dummyHash
	if usable {
		hash = account.PasswordSecret
	}

	// Always compare so missing and inactive accounts take as long as real ones.
	ok, verifyErr := s.hasher.Verify(ctx, hash, plain)
	if verifyErr != nil {
		if !usable {
			return entity.SafeAccount{}, domain.ErrInvalidCredentials
		}
		return entity.SafeAccount{}, fmt.Errorf("failed to verify password: %w", verifyErr)
	}

	if !usable || !ok {
		return entity.SafeAccount{}, domain.ErrInvalidCredentials
	}

	return account.Safe(), nil
}
