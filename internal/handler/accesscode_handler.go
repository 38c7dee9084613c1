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

// AccessCodeServiceInterface はアクセスコードハンドラーが必要とするサービスインターフェース。
type AccessCodeServiceInterface interface {
	ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error)
	GetAccessCode(ctx context.Context, id string) (*model.AccessCode, error)
	CreateAccessCode(ctx context.Context, input account.CreateAccessCodeInput) (*model.AccessCode, error)
	UpdateAccessCode(ctx context.Context, id string, input account.CreateAccessCodeInput, isActive *bool) (*model.AccessCode, error)
	DeleteAccessCode(ctx context.Context, id string) error
}

// AccessCodeHandler はアクセスコード管理のHTTPハンドラー。管理者専用。
type AccessCodeHandler struct {
	service AccessCodeServiceInterface
}

// NewAccessCodeHandler はAccessCodeHandlerを生成する。
func NewAccessCodeHandler(service AccessCodeServiceInterface) *AccessCodeHandler {
	return &AccessCodeHandler{service: service}
}

// accessCodeResponse はアクセスコードのAPIレスポンス。
type accessCodeResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	Role           string     `json:"role"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	LogIPAddresses []string   `json:"log_ip_addresses"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// accessCodeRequest はアクセスコード作成・更新リクエストのボディ。
type accessCodeRequest struct {
	Name       string     `json:"name"`
	Code       string     `json:"code"`
	Role       string     `json:"role"`
	ValidUntil *time.Time `json:"valid_until"`
	IsActive   *bool      `json:"is_active"`
}

// ListAccessCodes は全アクセスコードの一覧を取得する。
// GET /api/access-codes
func (h *AccessCodeHandler) ListAccessCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListAccessCodes(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]accessCodeResponse, len(codes))
	for i, code := range codes {
		responses[i] = toAccessCodeResponse(code)
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetAccessCode は指定IDのアクセスコードを取得する。
// GET /api/access-codes/{id}
func (h *AccessCodeHandler) GetAccessCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.GetAccessCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccessCodeResponse(code))
}

// CreateAccessCode はアクセスコードを作成する。
// POST /api/access-codes
func (h *AccessCodeHandler) CreateAccessCode(w http.ResponseWriter, r *http.Request) {
	input, _, ok := h.decodeAccessCodeRequest(w, r, true)
	if !ok {
		return
	}

	code, err := h.service.CreateAccessCode(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccessCodeResponse(code))
}

// UpdateAccessCode はアクセスコードを更新する。
// PUT /api/access-codes/{id}
func (h *AccessCodeHandler) UpdateAccessCode(w http.ResponseWriter, r *http.Request) {
	input, isActive, ok := h.decodeAccessCodeRequest(w, r, false)
	if !ok {
		return
	}

	code, err := h.service.UpdateAccessCode(r.Context(), chi.URLParam(r, "id"), input, isActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccessCodeResponse(code))
}

// DeleteAccessCode はアクセスコードを削除する。
// DELETE /api/access-codes/{id}
func (h *AccessCodeHandler) DeleteAccessCode(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccessCode(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeAccessCodeRequest はリクエストボディを解析して入力に変換する。
// requireRole=trueのときロール未指定はviewerにフォールバックする。
func (h *AccessCodeHandler) decodeAccessCodeRequest(w http.ResponseWriter, r *http.Request, requireRole bool) (account.CreateAccessCodeInput, *bool, bool) {
	var req accessCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return account.CreateAccessCodeInput{}, nil, false
	}

	input := account.CreateAccessCodeInput{
		Name:       req.Name,
		Code:       req.Code,
		ValidUntil: req.ValidUntil,
	}

	if req.Role != "" {
		role, ok := model.ParseRole(req.Role)
		if !ok {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRoleError(req.Role))
			return account.CreateAccessCodeInput{}, nil, false
		}
		input.Role = role
	} else if requireRole {
		input.Role = model.RoleViewer
	}

	return input, req.IsActive, true
}

// toAccessCodeResponse はmodel.AccessCodeからAPIレスポンスに変換する。
func toAccessCodeResponse(code *model.AccessCode) accessCodeResponse {
	logIPs := code.LogIPAddresses
	if logIPs == nil {
		logIPs = []string{}
	}
	return accessCodeResponse{
		ID:             code.ID,
		Name:           code.Name,
		Code:           code.Code,
		Role:           string(code.Role),
		ValidUntil:     code.ValidUntil,
		IsActive:       code.IsActive,
		LastLogin:      code.LastLogin,
		LogIPAddresses: logIPs,
		CreatedAt:      code.CreatedAt,
		UpdatedAt:      code.UpdatedAt,
	}
}
