package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/model"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	Gate              middleware.AuthGate
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPRecorder      middleware.HTTPRecorder

	// ドメインサービス
	AuthService         AuthServiceInterface
	ExpenseService      ExpenseServiceInterface
	AccountService      AccountServiceInterface
	AccessCodeService   AccessCodeServiceInterface
	SessionService      SessionServiceInterface
	RequestService      RequestServiceInterface
	LoginAttemptService LoginAttemptServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → RateLimit → AuthGate
//
// 認証ゲートは/api配下の全ルートで1リクエスト1回実行される。
// 資格情報のない公開ルート（ログイン、参加リクエスト作成、ドキュメント）も
// ゲートを通過するため、ロックアウト中のIPからは拒否される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	expenseHandler := NewExpenseHandler(deps.ExpenseService)
	accountHandler := NewAccountHandler(deps.AccountService)
	codeHandler := NewAccessCodeHandler(deps.AccessCodeService)
	sessionHandler := NewSessionHandler(deps.SessionService)
	requestHandler := NewRequestHandler(deps.RequestService)
	attemptHandler := NewLoginAttemptHandler(deps.LoginAttemptService)
	docsHandler := NewDocsHandler()

	// ヘルスチェックは認証ゲートの外に配置する
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				writeAPIErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
					Code:     "UNHEALTHY",
					Message:  "データベースに接続できません。",
					Category: "system",
					Action:   "しばらく待ってから再度お試しください。",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Use(middleware.NewAuthGateMiddleware(deps.Gate))

		// --- 公開ルート（匿名通過はゲートのロックアウト判定に従う） ---

		r.Post("/auth/login", authHandler.Login)
		r.Post("/requests", requestHandler.CreateRequest)
		r.Get("/docs", docsHandler.ServeOpenAPI)
		r.Get("/docs/openapi.yaml", docsHandler.ServeOpenAPI)

		// --- 認証済みプリンシパルが必要なルート ---

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrincipal())

			r.Post("/auth/logout", authHandler.Logout)

			// 支出の閲覧は全ロール（サービス層でロール別にフィルタ）
			r.Get("/expenses", expenseHandler.ListExpenses)
			r.Get("/expenses/{id}", expenseHandler.GetExpense)
		})

		// コメント操作はfamilyと管理者のみ
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleFamily, model.RoleAdmin))

			r.Post("/expenses/{id}/comments", expenseHandler.AddComment)
			r.Put("/expenses/{id}/comments/{commentID}", expenseHandler.UpdateComment)
			r.Delete("/expenses/{id}/comments/{commentID}", expenseHandler.DeleteComment)
		})

		// --- 管理者専用ルート ---

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))

			// 支出の変更
			r.Post("/expenses", expenseHandler.CreateExpense)
			r.Put("/expenses/{id}", expenseHandler.UpdateExpense)
			r.Delete("/expenses/{id}", expenseHandler.DeleteExpense)

			// アカウント管理
			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", accountHandler.ListAccounts)
				r.Post("/", accountHandler.CreateAccount)
				r.Get("/banned", accountHandler.ListBannedAccounts)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", accountHandler.GetAccount)
					r.Put("/", accountHandler.UpdateAccount)
					r.Delete("/", accountHandler.DeleteAccount)
					r.Post("/ban", accountHandler.BanAccount)
					r.Post("/revoke", accountHandler.RevokeAccount)
					r.Delete("/sessions/{sessionID}", sessionHandler.RevokeAccountSession)
				})
			})

			// アクセスコード管理
			r.Route("/access-codes", func(r chi.Router) {
				r.Get("/", codeHandler.ListAccessCodes)
				r.Post("/", codeHandler.CreateAccessCode)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", codeHandler.GetAccessCode)
					r.Put("/", codeHandler.UpdateAccessCode)
					r.Delete("/", codeHandler.DeleteAccessCode)
				})
			})

			// セッション管理
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.ListActiveSessions)
				r.Get("/revoked", sessionHandler.ListRevokedSessions)
				r.Get("/{id}", sessionHandler.GetSession)
				r.Delete("/{id}", sessionHandler.RevokeSession)
			})

			// 参加リクエスト管理
			r.Get("/requests", requestHandler.ListRequests)
			r.Patch("/requests/{id}", requestHandler.UpdateStatus)

			// 失敗試行レコードの監査
			r.Get("/login-attempts", attemptHandler.ListAttempts)
			r.Get("/login-attempts/{ip}", attemptHandler.GetAttempt)
		})
	})

	return r
}
