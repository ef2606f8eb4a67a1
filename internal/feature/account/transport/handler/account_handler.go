// Package handler はaccountフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/transport/http/dto"
	"account_backend/internal/platform/errutil"
	"account_backend/internal/platform/metrics"
)

const (
	internalErrorMessage = "internal server error"

	opRegister = "register"
	opLogin    = "login"
)

// CredentialUsecase は登録・ログインのユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type CredentialUsecase interface {
	// Register は新規アカウントを登録し、秘密情報を含まない射影を返します。
	Register(ctx context.Context, name, email, password string) (entity.SafeAccount, error)
	// Authenticate は資格情報を検証し、成功時にアカウントの射影を返します。
	Authenticate(ctx context.Context, email, password string) (entity.SafeAccount, error)
}

// OutcomeRecorder は操作結果をメトリクスとして記録します。
type OutcomeRecorder interface {
	RecordOperation(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, string) {}

// AccountHandler はアカウント操作のHTTPリクエストを処理します。
type AccountHandler struct {
	accounts CredentialUsecase
	logger   *slog.Logger
	outcomes OutcomeRecorder
}

// NewAccountHandler はAccountHandlerの新しいインスタンスを生成します。
// loggerがnilの場合はslog.Default()を、outcomesがnilの場合は何も記録しない実装を使用します。
func NewAccountHandler(accounts CredentialUsecase, logger *slog.Logger, outcomes OutcomeRecorder) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if outcomes == nil {
		outcomes = noopRecorder{}
	}
	return &AccountHandler{accounts: accounts, logger: logger, outcomes: outcomes}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - リクエストJSONをRegisterReqにバインド
// - バリデーションエラー・メール重複時は400を返却
// - 成功時はアカウント情報付きで201を返却
func (h *AccountHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "register validation failed", "error", err, "remote_addr", c.ClientIP())
		h.outcomes.RecordOperation(opRegister, metrics.OutcomeBadRequest)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: validationMessage(err)})
		return
	}

	account, err := h.accounts.Register(ctx, req.Name, string(req.Email), req.Password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrDuplicateAccount):
		h.logger.WarnContext(ctx, "register rejected", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		outcome := metrics.OutcomeBadRequest
		if errors.Is(err, domain.ErrDuplicateAccount) {
			outcome = metrics.OutcomeDuplicate
		}
		h.outcomes.RecordOperation(opRegister, outcome)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	default:
		errutil.LogError(ctx, h.logger, "register failed", err, "email", req.Email, "remote_addr", c.ClientIP())
		h.outcomes.RecordOperation(opRegister, metrics.OutcomeError)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: internalErrorMessage})
		return
	}

	h.logger.InfoContext(ctx, "account registered", "account_id", account.ID, "remote_addr", c.ClientIP())
	h.outcomes.RecordOperation(opRegister, metrics.OutcomeSuccess)
	c.JSON(http.StatusCreated, account)
}

// Login はログインAPIエンドポイントを処理します。
// - リクエストJSONをLoginReqにバインド
// - バリデーションエラー時は400を返却
// - 認証失敗時は401を返却
// - 認証成功時はアカウント情報付きで200を返却
func (h *AccountHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "login validation failed", "error", err, "remote_addr", c.ClientIP())
		h.outcomes.RecordOperation(opLogin, metrics.OutcomeBadRequest)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: validationMessage(err)})
		return
	}

	account, err := h.accounts.Authenticate(ctx, string(req.Email), req.Password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCredentials):
		// ユーザー列挙攻撃を防止するため、失敗理由は区別しない
		h.logger.WarnContext(ctx, "login failed", "email", req.Email, "remote_addr", c.ClientIP())
		h.outcomes.RecordOperation(opLogin, metrics.OutcomeInvalidCredentials)
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: domain.ErrInvalidCredentials.Error()})
		return
	default:
		errutil.LogError(ctx, h.logger, "login error", err, "email", req.Email, "remote_addr", c.ClientIP())
		h.outcomes.RecordOperation(opLogin, metrics.OutcomeError)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: internalErrorMessage})
		return
	}

	h.logger.InfoContext(ctx, "login successful", "account_id", account.ID, "remote_addr", c.ClientIP())
	h.outcomes.RecordOperation(opLogin, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, account)
}

// validationMessage はバインドエラーを利用者向けのメッセージに変換します。
func validationMessage(err error) string {
	if errors.Is(err, openapi_types.ErrValidationEmail) {
		return "email must be a valid email address"
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "email":
		return "email must be a valid email address"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
