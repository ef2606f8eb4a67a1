package adapters

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"account_backend/internal/feature/account/domain/entity"
)

// AccountModel is the GORM model for the accounts table.
type AccountModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	Name           string `gorm:"size:255;not null"`
	Email          string `gorm:"uniqueIndex;size:255;not null"`
	PasswordSecret string `gorm:"size:255;not null"`
	IsActive       bool   `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// safeColumns are the columns read when the secret is not requested.
var safeColumns = []string{"id", "name", "email", "is_active", "created_at", "updated_at"}

// TableName returns the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

// BeforeCreate assigns a UUID when the ID is empty.
func (m *AccountModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ToEntity converts the GORM model to a domain entity.
func (m *AccountModel) ToEntity() *entity.Account {
	return &entity.Account{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		PasswordSecret: m.PasswordSecret,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// AccountModelFromEntity converts a domain entity to a GORM model.
func AccountModelFromEntity(a *entity.Account) *AccountModel {
	return &AccountModel{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		PasswordSecret: a.PasswordSecret,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
