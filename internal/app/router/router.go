package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	accounthandler "account_backend/internal/feature/account/transport/handler"
	platformhandler "account_backend/internal/platform/http/handler"
	"account_backend/internal/platform/metrics"
)

// NewRouter は全ルートを登録したEngineを返します。mがnilの場合 /metrics は公開しません。
func NewRouter(accountH *accounthandler.AccountHandler, health *platformhandler.HealthHandler, m *metrics.Metrics) *gin.Engine {
	r := gin.Default()

	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", m.Handler())
	}

	// ブラウザのフロントエンドから呼ばれるため CORS を許可
	r.Use(cors.Default())

	// 導通確認用
	r.GET("/health", health.Health)
	r.HEAD("/health", health.Health)

	users := r.Group("/users")
	{
		// 新規ユーザー登録
		users.POST("/register", accountH.Register)
		// ログイン（トークンは発行しない）
		users.POST("/login", accountH.Login)
	}

	return r
}
