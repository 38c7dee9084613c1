package middleware

import (
	"net/http"

	"github.com/hitoshi/kakeibo/internal/model"
)

// RequirePrincipal は認証済みプリンシパルを要求するガードミドルウェアを返す。
// 匿名リクエストには401 Unauthorizedを返す。
// 認証ゲートの後に配置すること。
func RequirePrincipal() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole は指定されたロールのいずれかを持つプリンシパルを要求する
// ガードミドルウェアを返す。
// 匿名リクエストには401、ロール不一致には403を返す。
func RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
