// Package adapters はaccountフィーチャーのGORMリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/samber/oops"
	"gorm.io/gorm"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// accountGorm はAccountRepositoryインターフェースのGORM実装です。
// PostgresとSQLiteのどちらの接続でも動作します。
type accountGorm struct {
	db *gorm.DB
}

// accountGormがAccountRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.AccountRepository = (*accountGorm)(nil)

// NewAccountGorm は指定されたgorm.DB接続でaccountGormの新しいインスタンスを生成します。
func NewAccountGorm(db *gorm.DB) *accountGorm {
	return &accountGorm{db: db}
}

// Migrate はaccountsテーブルとemailのユニークインデックスを作成します。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&AccountModel{}); err != nil {
		return oops.Code("ACCOUNT_MIGRATION_FAILED").With("store", "gorm").Wrap(err)
	}
	return nil
}

// Create はアカウントをデータベースに追加し、ID・タイムスタンプをエンティティに反映します。
// emailのユニーク制約に違反した場合、domain.ErrConstraintViolationを返します。
func (r *accountGorm) Create(ctx context.Context, a *entity.Account) error {
	if a == nil {
		return oops.Code("ACCOUNT_STORE_FAILED").With("store", "gorm").Errorf("account is nil")
	}

	m := AccountModelFromEntity(a)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConstraintViolation
		}
		return oops.Code("ACCOUNT_STORE_FAILED").
			With("store", "gorm").
			With("email", a.Email).
			Wrap(err)
	}

	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
	return nil
}

// FindByEmail はメールアドレスでアカウントを取得します。
// includeSecretがfalseの場合、password_secret列はSELECTされません。
// アカウントが存在しない場合、domain.ErrAccountNotFoundを返します。
func (r *accountGorm) FindByEmail(ctx context.Context, email string, includeSecret bool) (*entity.Account, error) {
	q := r.db.WithContext(ctx).Where("email = ?", email)
	if !includeSecret {
		q = q.Select(safeColumns)
	}

	var m AccountModel
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, oops.Code("ACCOUNT_STORE_FAILED").
			With("store", "gorm").
			With("email", email).
			Wrap(err)
	}
	return m.ToEntity(), nil
}

// isUniqueViolation はエラーがユニーク制約違反かどうかを判定します。
// TranslateErrorの有無に関わらず、Postgres(23505)とSQLiteの両方を検出します。
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
