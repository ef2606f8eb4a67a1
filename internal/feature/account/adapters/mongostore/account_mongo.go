// Package mongostore provides the MongoDB implementation of the account repository.
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

const (
	// CollectionName is the collection holding account documents.
	CollectionName = "accounts"

	emailIndexName = "email_unique"
	secretField    = "passwordSecret"
)

// accountDocument is the BSON shape of an account.
type accountDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Name           string        `bson:"name"`
	Email          string        `bson:"email"`
	PasswordSecret string        `bson:"passwordSecret,omitempty"`
	IsActive       bool          `bson:"isActive"`
	CreatedAt      time.Time     `bson:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt"`
}

// AccountMongo implements usecase.AccountRepository on a MongoDB collection.
type AccountMongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Compile-time check to ensure AccountMongo implements AccountRepository.
var _ usecase.AccountRepository = (*AccountMongo)(nil)

// NewAccountMongo creates an AccountMongo on the accounts collection of db.
func NewAccountMongo(db *mongo.Database) *AccountMongo {
	return &AccountMongo{
		coll: db.Collection(CollectionName),
		now:  time.Now,
	}
}

// EnsureIndexes creates the unique index on email.
// Registration relies on it to reject the loser of a concurrent insert.
func (r *AccountMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(emailIndexName),
	})
	if err != nil {
		return oops.Code("ACCOUNT_INDEX_FAILED").
			With("store", "mongo").
			With("index", emailIndexName).
			Wrap(err)
	}
	return nil
}

// Create inserts the account and sets its ID and timestamps.
// A duplicate email returns domain.ErrConstraintViolation.
func (r *AccountMongo) Create(ctx context.Context, a *entity.Account) error {
	if a == nil {
		return oops.Code("ACCOUNT_STORE_FAILED").With("store", "mongo").Errorf("account is nil")
	}

	// BSON dates have millisecond precision.
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := toDocument(a)
	doc.ID = bson.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translateInsertError(err, a.Email)
	}

	a.ID = doc.ID.Hex()
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// FindByEmail returns the account with the given email.
// The secret field is projected out unless includeSecret is true.
func (r *AccountMongo) FindByEmail(ctx context.Context, email string, includeSecret bool) (*entity.Account, error) {
	opts := options.FindOne()
	if p := projection(includeSecret); p != nil {
		opts.SetProjection(p)
	}

	var doc accountDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, oops.Code("ACCOUNT_STORE_FAILED").
			With("store", "mongo").
			With("email", email).
			Wrap(err)
	}
	return doc.toEntity(), nil
}

// projection returns the find projection, or nil to return every field.
func projection(includeSecret bool) bson.D {
	if includeSecret {
		return nil
	}
	return bson.D{{Key: secretField, Value: 0}}
}

func translateInsertError(err error, email string) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConstraintViolation
	}
	return oops.Code("ACCOUNT_STORE_FAILED").
		With("store", "mongo").
		With("email", email).
		Wrap(err)
}

func toDocument(a *entity.Account) accountDocument {
	doc := accountDocument{
		Name:           a.Name,
		Email:          a.Email,
		PasswordSecret: a.PasswordSecret,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if id, err := bson.ObjectIDFromHex(a.ID); err == nil {
		doc.ID = id
	}
	return doc
}

func (d accountDocument) toEntity() *entity.Account {
	a := &entity.Account{
		Name:           d.Name,
		Email:          d.Email,
		PasswordSecret: d.PasswordSecret,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		a.ID = d.ID.Hex()
	}
	return a
}
