package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/model"
)

// RequestServiceInterface は参加リクエストハンドラーが必要とするサービスインターフェース。
type RequestServiceInterface interface {
	CreateRequest(ctx context.Context, name string, requestedRole model.Role, sourceIP string) (*model.JoinRequest, error)
	ListRequests(ctx context.Context) ([]*model.JoinRequest, error)
	UpdateStatus(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error)
}

// RequestHandler は参加リクエストのHTTPハンドラー。
// 作成は認証不要、一覧と状態遷移は管理者専用。
type RequestHandler struct {
	service RequestServiceInterface
}

// NewRequestHandler はRequestHandlerを生成する。
func NewRequestHandler(service RequestServiceInterface) *RequestHandler {
	return &RequestHandler{service: service}
}

// joinRequestResponse は参加リクエストのAPIレスポンス。
type joinRequestResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RequestedRole string    `json:"requested_role"`
	Status        string    `json:"status"`
	IPAddress     string    `json:"ip_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// createRequestBody は参加リクエスト作成のボディ。
type createRequestBody struct {
	Name          string `json:"name"`
	RequestedRole string `json:"requested_role"`
}

// updateStatusBody は状態遷移リクエストのボディ。
type updateStatusBody struct {
	Status string `json:"status"`
}

// CreateRequest は参加リクエストを作成する。認証不要。
// POST /api/requests
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBodyError(w)
		return
	}

	role, ok := model.ParseRole(body.RequestedRole)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRoleError(body.RequestedRole))
		return
	}

	req, err := h.service.CreateRequest(r.Context(), body.Name, role, sourceIPFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 認証不要エンドポイントのためIPアドレスは返さない
	writeJSON(w, http.StatusCreated, joinRequestResponse{
		ID:            req.ID,
		Name:          req.Name,
		RequestedRole: string(req.RequestedRole),
		Status:        string(req.Status),
		CreatedAt:     req.CreatedAt,
	})
}

// ListRequests は全参加リクエストの一覧を取得する。
// GET /api/requests
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListRequests(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]joinRequestResponse, len(requests))
	for i, req := range requests {
		responses[i] = toJoinRequestResponse(req)
	}
	writeJSON(w, http.StatusOK, responses)
}

// UpdateStatus は参加リクエストの状態を遷移させる。
// PATCH /api/requests/{id}
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body updateStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBodyError(w)
		return
	}

	status, ok := model.ParseRequestStatus(body.Status)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidStatusError(body.Status))
		return
	}

	req, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toJoinRequestResponse(req))
}

func toJoinRequestResponse(req *model.JoinRequest) joinRequestResponse {
	return joinRequestResponse{
		ID:            req.ID,
		Name:          req.Name,
		RequestedRole: string(req.RequestedRole),
		Status:        string(req.Status),
		IPAddress:     req.IPAddress,
		CreatedAt:     req.CreatedAt,
	}
}
