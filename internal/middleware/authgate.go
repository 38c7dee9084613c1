// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hitoshi/kakeibo/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var principalContextKey = contextKey("principal")

// AuthGate は認証ゲートのインターフェース。
// auth.Gateの部分集合として定義する。
type AuthGate interface {
	Evaluate(ctx context.Context, authorization, sourceIP string) (*model.Principal, error)
}

// NewAuthGateMiddleware は全APIリクエストに対して認証ゲートを1回実行する
// ミドルウェアを返す。
//
// ゲートが拒否した場合はカテゴリ付きのエラーレスポンスを書き込み、
// 後続のハンドラーには到達させない。通過した場合はプリンシパル
// （匿名リクエストではnil）をコンテキストに注入する。
// 保護ルートの認可はRequirePrincipal / RequireRoleガードが担う。
func NewAuthGateMiddleware(gate AuthGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sourceIP := ClientIP(r)

			principal, err := gate.Evaluate(r.Context(), r.Header.Get("Authorization"), sourceIP)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
					return
				}

				// ストア障害。認証拒否とは区別して500を返す。
				slog.Error("auth gate evaluation failed",
					slog.String("error", err.Error()),
					slog.String("source_ip", sourceIP),
				)
				WriteInternalServerError(w)
				return
			}

			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// 匿名リクエストおよびゲート未通過のコンテキストではnilを返す。
func PrincipalFromContext(ctx context.Context) *model.Principal {
	principal, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok {
		return nil
	}
	return principal
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// ClientIP はリクエストの送信元IPアドレスを解決する。
// X-Forwarded-Forヘッダーがある場合は先頭のアドレスを優先し、
// なければRemoteAddrのホスト部を返す。
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := fwd
		if idx := strings.Index(fwd, ","); idx >= 0 {
			first = fwd[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
