package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/model"
)

// SessionServiceInterface はセッションハンドラーが必要とするサービスインターフェース。
type SessionServiceInterface interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListActiveSessions(ctx context.Context) ([]*model.Session, error)
	ListRevokedSessions(ctx context.Context) ([]*model.Session, error)
	RevokeSession(ctx context.Context, id string) error
	RevokeAccountSession(ctx context.Context, accountID, id string) error
}

// SessionHandler はセッション管理のHTTPハンドラー。管理者専用。
type SessionHandler struct {
	service SessionServiceInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// sessionResponse はセッションのAPIレスポンス。トークン自体は返さない。
type sessionResponse struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Revoked   bool       `json:"revoked"`
	Banned    bool       `json:"banned"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// ListActiveSessions は有効なセッションの一覧を取得する。
// GET /api/sessions
func (h *SessionHandler) ListActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListActiveSessions(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponses(sessions))
}

// ListRevokedSessions は無効化済みセッションの一覧を取得する。
// GET /api/sessions/revoked
func (h *SessionHandler) ListRevokedSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListRevokedSessions(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponses(sessions))
}

// GetSession は指定IDのセッションを取得する。
// GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// RevokeSession は指定IDのセッションを無効化する。
// DELETE /api/sessions/{id}
func (h *SessionHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RevokeSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeAccountSession はアカウントに属する指定セッションを無効化する。
// DELETE /api/accounts/{id}/sessions/{sessionID}
func (h *SessionHandler) RevokeAccountSession(w http.ResponseWriter, r *http.Request) {
	err := h.service.RevokeAccountSession(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		AccountID: s.AccountID,
		Revoked:   s.Revoked,
		Banned:    s.Banned,
		CreatedAt: s.CreatedAt,
		RevokedAt: s.RevokedAt,
	}
}

func toSessionResponses(sessions []*model.Session) []sessionResponse {
	responses := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = toSessionResponse(s)
	}
	return responses
}
