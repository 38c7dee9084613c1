package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/account"
	"github.com/hitoshi/kakeibo/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	ListBannedAccounts(ctx context.Context) ([]*model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	CreateAccount(ctx context.Context, input account.CreateAccountInput) (*model.Account, error)
	UpdateAccount(ctx context.Context, id string, input account.UpdateAccountInput) (*model.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	BanAccount(ctx context.Context, id string) (*model.Account, error)
	RevokeAccount(ctx context.Context, id string) (*model.Account, error)
}

// AccountHandler はアカウント管理のHTTPハンドラー。管理者専用。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// accountResponse はアカウントのAPIレスポンス。
// アクセスコード自体は管理者向けにも返さない。
type accountResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	LastLogout     *time.Time `json:"last_logout,omitempty"`
	LastIPAddress  string     `json:"last_ip_address,omitempty"`
	LogIPAddresses []string   `json:"log_ip_addresses"`
	IsRevoked      bool       `json:"is_revoked"`
	IsBanned       bool       `json:"is_banned"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// accountRequest はアカウント作成・更新リクエストのボディ。
type accountRequest struct {
	Name       *string    `json:"name"`
	Code       *string    `json:"code"`
	Role       *string    `json:"role"`
	ValidUntil *time.Time `json:"valid_until"`
	IsActive   *bool      `json:"is_active"`
	IsRevoked  *bool      `json:"is_revoked"`
	IsBanned   *bool      `json:"is_banned"`
}

// ListAccounts は全アカウントの一覧を取得する。
// GET /api/accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

// ListBannedAccounts は禁止済みアカウントの一覧を取得する。
// GET /api/accounts/banned
func (h *AccountHandler) ListBannedAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListBannedAccounts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

// GetAccount は指定IDのアカウントを取得する。
// GET /api/accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// CreateAccount はアカウントを作成する。
// POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	input := account.CreateAccountInput{ValidUntil: req.ValidUntil}
	if req.Name != nil {
		input.Name = *req.Name
	}
	if req.Code != nil {
		input.Code = *req.Code
	}
	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRoleError(*req.Role))
			return
		}
		input.Role = role
	} else {
		input.Role = model.RoleViewer
	}

	acc, err := h.service.CreateAccount(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// UpdateAccount はアカウントの属性を更新する。
// PUT /api/accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	input := account.UpdateAccountInput{
		Name:       req.Name,
		Code:       req.Code,
		ValidUntil: req.ValidUntil,
		IsActive:   req.IsActive,
		IsRevoked:  req.IsRevoked,
		IsBanned:   req.IsBanned,
	}
	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRoleError(*req.Role))
			return
		}
		input.Role = &role
	}

	acc, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// DeleteAccount はアカウントを削除する。
// DELETE /api/accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BanAccount はアカウントを禁止し、全セッションを無効化する。
// POST /api/accounts/{id}/ban
func (h *AccountHandler) BanAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.BanAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// RevokeAccount はアカウントを無効化し、全セッションを無効化する。
// POST /api/accounts/{id}/revoke
func (h *AccountHandler) RevokeAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.RevokeAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// --- ヘルパー関数 ---

// toAccountResponse はmodel.AccountからAPIレスポンスに変換する。
func toAccountResponse(acc *model.Account) accountResponse {
	logIPs := acc.LogIPAddresses
	if logIPs == nil {
		logIPs = []string{}
	}
	return accountResponse{
		ID:             acc.ID,
		Name:           acc.Name,
		Role:           string(acc.Role),
		ValidUntil:     acc.ValidUntil,
		IsActive:       acc.IsActive,
		LastLogin:      acc.LastLogin,
		LastLogout:     acc.LastLogout,
		LastIPAddress:  acc.LastIPAddress,
		LogIPAddresses: logIPs,
		IsRevoked:      acc.IsRevoked,
		IsBanned:       acc.IsBanned,
		CreatedAt:      acc.CreatedAt,
		UpdatedAt:      acc.UpdatedAt,
	}
}

func toAccountResponses(accounts []*model.Account) []accountResponse {
	responses := make([]accountResponse, len(accounts))
	for i, acc := range accounts {
		responses[i] = toAccountResponse(acc)
	}
	return responses
}
