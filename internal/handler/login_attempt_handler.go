package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/model"
)

// LoginAttemptServiceInterface は失敗試行ハンドラーが必要とするサービスインターフェース。
// lockout.Trackerが実装する。
type LoginAttemptServiceInterface interface {
	ListAttempts(ctx context.Context) ([]*model.LoginAttempt, error)
	FindAttempt(ctx context.Context, ip string) (*model.LoginAttempt, error)
}

// LoginAttemptHandler は失敗試行レコードの監査用HTTPハンドラー。管理者専用。
type LoginAttemptHandler struct {
	service LoginAttemptServiceInterface
}

// NewLoginAttemptHandler はLoginAttemptHandlerを生成する。
func NewLoginAttemptHandler(service LoginAttemptServiceInterface) *LoginAttemptHandler {
	return &LoginAttemptHandler{service: service}
}

// loginAttemptResponse は失敗試行レコードのAPIレスポンス。
type loginAttemptResponse struct {
	IPAddress     string    `json:"ip_address"`
	Attempts      int       `json:"attempts"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// ListAttempts は全失敗試行レコードの一覧を取得する。
// GET /api/login-attempts
func (h *LoginAttemptHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.ListAttempts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]loginAttemptResponse, len(attempts))
	for i, a := range attempts {
		responses[i] = loginAttemptResponse{
			IPAddress:     a.IPAddress,
			Attempts:      a.Attempts,
			LastAttemptAt: a.LastAttemptAt,
		}
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetAttempt は指定IPの失敗試行レコードを取得する。
// GET /api/login-attempts/{ip}
func (h *LoginAttemptHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.service.FindAttempt(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if attempt == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "指定されたIPアドレスの試行レコードはありません。",
			Category: "validation",
			Action:   "IPアドレスを確認してください。",
		})
		return
	}

	writeJSON(w, http.StatusOK, loginAttemptResponse{
		IPAddress:     attempt.IPAddress,
		Attempts:      attempt.Attempts,
		LastAttemptAt: attempt.LastAttemptAt,
	})
}
