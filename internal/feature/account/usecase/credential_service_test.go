package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/platform/password"
)

// mockAccountRepository is a mock implementation of AccountRepository.
type mockAccountRepository struct {
	FindByEmailFunc func(ctx context.Context, email string, includeSecret bool) (*entity.Account, error)
	CreateFunc      func(ctx context.Context, account *entity.Account) error
}

// FindByEmail is the mock implementation of the FindByEmail method.
func (m *mockAccountRepository) FindByEmail(ctx context.Context, email string, includeSecret bool) (*entity.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email, includeSecret)
	}
	return nil, domain.ErrAccountNotFound // Default: not found
}

// Create is the mock implementation of the Create method.
func (m *mockAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil // Default: success
}

// mockHasher is a mock implementation of PasswordHasher.
type mockHasher struct {
	HashFunc   func(ctx context.Context, plain string) (string, error)
	VerifyFunc func(ctx context.Context, hash, plain string) (bool, error)
	verified   []string
}

func (m *mockHasher) Hash(ctx context.Context, plain string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(ctx, plain)
	}
	return "hashed:" + plain, nil
}

func (m *mockHasher) Verify(ctx context.Context, hash, plain string) (bool, error) {
	m.verified = append(m.verified, hash)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, hash, plain)
	}
	return hash == "hashed:"+plain, nil
}

// memoryRepository is an in-memory AccountRepository with a unique email index.
type memoryRepository struct {
	mu       sync.Mutex
	accounts map[string]entity.Account
	nextID   int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{accounts: map[string]entity.Account{}}
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string, includeSecret bool) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if !includeSecret {
		a.PasswordSecret = ""
	}
	return &a, nil
}

func (r *memoryRepository) Create(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.Email]; ok {
		return domain.ErrConstraintViolation
	}
	r.nextID++
	now := time.Now()
	account.ID = fmt.Sprintf("acc-%d", r.nextID)
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.Email] = *account
	return nil
}

func (r *memoryRepository) deactivate(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.accounts[email]
	a.IsActive = false
	r.accounts[email] = a
}

func newRealService() (*CredentialService, *memoryRepository) {
	repo := newMemoryRepository()
	return NewCredentialService(repo, password.NewBcryptHasher(bcrypt.MinCost, 0)), repo
}

func TestCredentialService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("successful registration", func(t *testing.T) {
		var created *entity.Account
		repo := &mockAccountRepository{
			FindByEmailFunc: func(_ context.Context, email string, includeSecret bool) (*entity.Account, error) {
				assert.Equal(t, "ana@mail.com", email, "email must be normalized before lookup")
				assert.False(t, includeSecret, "registration lookup must not load the secret")
				return nil, domain.ErrAccountNotFound
			},
			CreateFunc: func(_ context.Context, account *entity.Account) error {
				created = account
				account.ID = "id-1"
				return nil
			},
		}

		svc := NewCredentialService(repo, &mockHasher{})
		got, err := svc.Register(ctx, "Ana", "Ana@Mail.com", "secret1")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "hashed:secret1", created.PasswordSecret)
		assert.True(t, created.IsActive)
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "ana@mail.com", got.Email)
		assert.Equal(t, "Ana", got.Name)
		assert.True(t, got.IsActive)
	})

	t.Run("existing email is rejected without writing", func(t *testing.T) {
		repo := &mockAccountRepository{
			FindByEmailFunc: func(context.Context, string, bool) (*entity.Account, error) {
				return &entity.Account{ID: "id-1", Email: "ana@mail.com"}, nil
			},
			CreateFunc: func(context.Context, *entity.Account) error {
				t.Error("Create must not be called for a duplicate email")
				return nil
			},
		}
		hasher := &mockHasher{
			HashFunc: func(context.Context, string) (string, error) {
				t.Error("Hash must not be called for a duplicate email")
				return "", nil
			},
		}

		svc := NewCredentialService(repo, hasher)
		_, err := svc.Register(ctx, "Ana", "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
	})

	t.Run("constraint violation maps to duplicate", func(t *testing.T) {
		repo := &mockAccountRepository{
			CreateFunc: func(context.Context, *entity.Account) error {
				return domain.ErrConstraintViolation
			},
		}

		svc := NewCredentialService(repo, &mockHasher{})
		_, err := svc.Register(ctx, "Ana", "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
		assert.NotErrorIs(t, err, domain.ErrConstraintViolation)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name     string
			acName   string
			email    string
			password string
		}{
			{"short name", "A", "a@example.com", "secret1"},
			{"empty email", "Ana", "", "secret1"},
			{"short password", "Ana", "a@example.com", "12345"},
			{"password over bcrypt limit", "Ana", "a@example.com", string(make([]byte, 73))},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := &mockAccountRepository{
					FindByEmailFunc: func(context.Context, string, bool) (*entity.Account, error) {
						t.Error("store must not be reached with invalid input")
						return nil, domain.ErrAccountNotFound
					},
				}

				svc := NewCredentialService(repo, &mockHasher{})
				_, err := svc.Register(ctx, tt.acName, tt.email, tt.password)

				assert.ErrorIs(t, err, domain.ErrValidation)
			})
		}
	})

	t.Run("lookup failure is propagated", func(t *testing.T) {
		dbErr := errors.New("database error")
		repo := &mockAccountRepository{
			FindByEmailFunc: func(context.Context, string, bool) (*entity.Account, error) {
				return nil, dbErr
			},
		}

		svc := NewCredentialService(repo, &mockHasher{})
		_, err := svc.Register(ctx, "Ana", "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, domain.ErrDuplicateAccount)
	})

	t.Run("hash failure is propagated", func(t *testing.T) {
		hashErr := errors.New("hash error")
		hasher := &mockHasher{
			HashFunc: func(context.Context, string) (string, error) { return "", hashErr },
		}

		svc := NewCredentialService(&mockAccountRepository{}, hasher)
		_, err := svc.Register(ctx, "Ana", "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, hashErr)
	})

	t.Run("create failure is propagated", func(t *testing.T) {
		dbErr := errors.New("database error")
		repo := &mockAccountRepository{
			CreateFunc: func(context.Context, *entity.Account) error { return dbErr },
		}

		svc := NewCredentialService(repo, &mockHasher{})
		_, err := svc.Register(ctx, "Ana", "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestCredentialService_Authenticate(t *testing.T) {
	ctx := context.Background()
	active := &entity.Account{
		ID:             "id-1",
		Name:           "Ana",
		Email:          "ana@mail.com",
		PasswordSecret: "hashed:secret1",
		IsActive:       true,
	}

	t.Run("successful login", func(t *testing.T) {
		repo := &mockAccountRepository{
			FindByEmailFunc: func(_ context.Context, email string, includeSecret bool) (*entity.Account, error) {
				assert.Equal(t, "ana@mail.com", email)
				assert.True(t, includeSecret, "login lookup must load the secret")
				return active, nil
			},
		}

		svc := NewCredentialService(repo, &mockHasher{})
		got, err := svc.Authenticate(ctx, "ANA@mail.com", "secret1")

		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "ana@mail.com", got.Email)
	})

	t.Run("unknown email, wrong password and inactive account share one error", func(t *testing.T) {
		inactive := *active
		inactive.IsActive = false

		tests := []struct {
			name     string
			account  *entity.Account
			findErr  error
			password string
		}{
			{"unknown email", nil, domain.ErrAccountNotFound, "secret1"},
			{"wrong password", active, nil, "wrong"},
			{"inactive account", &inactive, nil, "secret1"},
		}

		var messages []string
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := &mockAccountRepository{
					FindByEmailFunc: func(context.Context, string, bool) (*entity.Account, error) {
						return tt.account, tt.findErr
					},
				}
				hasher := &mockHasher{}

				svc := NewCredentialService(repo, hasher)
				_, err := svc.Authenticate(ctx, "ana@mail.com", tt.password)

				assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
				assert.Len(t, hasher.verified, 1, "password comparison must always run")
				messages = append(messages, err.Error())
			})
		}

		for _, m := range messages {
			assert.Equal(t, "invalid email or password", m)
		}
	})

	t.Run("missing account is compared against the dummy hash", func(t *testing.T) {
		hasher := &mockHasher{}

		svc := NewCredentialService(&mockAccountRepository{}, hasher)
		_, err := svc.Authenticate(ctx, "nobody@mail.com", "secret1")

		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		require.Len(t, hasher.verified, 1)
		assert.Equal(t, dummyHash, hasher.verified[0])
	})

	t.Run("lookup failure is not reported as invalid credentials", func(t *testing.T) {
		dbErr := errors.New("database error")
		repo := &mockAccountRepository{
			FindByEmailFunc: func(context.Context, string, bool) (*entity.Account, error) {
				return nil, dbErr
			},
		}

		svc := NewCredentialService(repo, &mockHasher{})
		_, err := svc.Authenticate(ctx, "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("verify failure on a stored hash is propagated", func(t *testing.T) {
		verifyErr := errors.New("malformed hash")
		repo := &mockAccountRepository{
			FindByEmailFunc: func(context.Context, string, bool) (*entity.Account, error) {
				return active, nil
			},
		}
		hasher := &mockHasher{
			VerifyFunc: func(context.Context, string, string) (bool, error) { return false, verifyErr },
		}

		svc := NewCredentialService(repo, hasher)
		_, err := svc.Authenticate(ctx, "ana@mail.com", "secret1")

		assert.ErrorIs(t, err, verifyErr)
	})
}

func TestCredentialService_RegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newRealService()

	registered, err := svc.Register(ctx, "Ana", "Ana@Mail.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@mail.com", registered.Email)
	assert.NotEmpty(t, registered.ID)
	assert.False(t, registered.CreatedAt.IsZero())

	stored, err := repo.FindByEmail(ctx, "ana@mail.com", true)
	require.NoError(t, err)
	ok, err := password.NewBcryptHasher(bcrypt.MinCost, 0).Verify(ctx, stored.PasswordSecret, "secret1")
	require.NoError(t, err)
	assert.True(t, ok, "stored hash must verify against the original password")
	assert.NotEqual(t, "secret1", stored.PasswordSecret)

	t.Run("same email in different case is a duplicate", func(t *testing.T) {
		_, err := svc.Register(ctx, "Ana Two", "ana@MAIL.com", "secret2")
		assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
	})

	t.Run("correct credentials", func(t *testing.T) {
		got, err := svc.Authenticate(ctx, "ana@mail.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, got.ID)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, wrongPw := svc.Authenticate(ctx, "ana@mail.com", "wrong")
		_, unknown := svc.Authenticate(ctx, "nobody@mail.com", "secret1")

		assert.ErrorIs(t, wrongPw, domain.ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, domain.ErrInvalidCredentials)
		assert.Equal(t, wrongPw.Error(), unknown.Error())
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		repo.deactivate("ana@mail.com")

		_, err := svc.Authenticate(ctx, "ana@mail.com", "secret1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestCredentialService_AuthenticateRejectsLongerPasswordWithSamePrefix(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRealService()
	pw := strings.Repeat("a", maxPasswordBytes)

	registered, err := svc.Register(ctx, "Ana", "ana@mail.com", pw)
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "ana@mail.com", pw)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, got.ID)

	got, err = svc.Authenticate(ctx, "ana@mail.com", pw+"DIFFERENT-SUFFIX")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Empty(t, got.ID)
}

func TestCredentialService_AuthenticateOverlongPasswordUsesDummyHash(t *testing.T) {
	repo := &mockAccountRepository{
		FindByEmailFunc: func(ctx context.Context, email string, includeSecret bool) (*entity.Account, error) {
			return &entity.Account{ID: "acc-1", Email: email, PasswordSecret: "hashed:x", IsActive: true}, nil
		},
	}
	hasher := &mockHasher{}
	svc := NewCredentialService(repo, hasher)

	_, err := svc.Authenticate(context.Background(), "ana@mail.com", strings.Repeat("x", maxPasswordBytes+1))

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, []string{dummyHash}, hasher.verified, "over-long input is compared against the dummy hash")
}

func TestCredentialService_ConcurrentRegistrationSameEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRealService()

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "Ana", "ana@mail.com", "secret1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, duplicates int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrDuplicateAccount):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, duplicates)
}
