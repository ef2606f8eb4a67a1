// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultCheckTimeout = 2 * time.Second

// Check は依存先（ストア、キャッシュなど）の疎通確認関数です。
type Check func(ctx context.Context) error

// HealthHandler は /health エンドポイントを処理します。
type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler はHealthHandlerを生成します。
// checksが空の場合は常に200を返す単純な死活監視として動作します。
func NewHealthHandler(checks map[string]Check, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{checks: checks, timeout: defaultCheckTimeout, logger: logger}
}

// Health はHTTPメソッドに応じてレスポンスし、キャッシュを防止します。
// 依存先のいずれかが失敗した場合は503を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	if failed := h.runChecks(c.Request.Context()); len(failed) > 0 {
		status = http.StatusServiceUnavailable
		body = gin.H{"status": "unavailable", "failed": failed}
	}

	if c.Request.Method == http.MethodHead {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

// runChecks returns the names of the failing checks in sorted order.
func (h *HealthHandler) runChecks(ctx context.Context) []string {
	var failed []string
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)
	return failed
}
