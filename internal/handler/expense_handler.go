package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/expense"
	"github.com/hitoshi/kakeibo/internal/model"
)

// ExpenseServiceInterface は支出ハンドラーが必要とするサービスインターフェース。
type ExpenseServiceInterface interface {
	ListExpenses(ctx context.Context, role model.Role) ([]*model.Expense, error)
	GetExpense(ctx context.Context, role model.Role, id string) (*model.Expense, error)
	CreateExpense(ctx context.Context, input expense.CreateExpenseInput) (*model.Expense, error)
	UpdateExpense(ctx context.Context, id string, input expense.UpdateExpenseInput) (*model.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	AddComment(ctx context.Context, principal *model.Principal, expenseID, body string) (*model.Comment, error)
	UpdateComment(ctx context.Context, principal *model.Principal, expenseID, commentID, body string) error
	DeleteComment(ctx context.Context, principal *model.Principal, expenseID, commentID string) error
}

// ExpenseHandler は支出管理のHTTPハンドラー。
type ExpenseHandler struct {
	service ExpenseServiceInterface
}

// NewExpenseHandler はExpenseHandlerを生成する。
func NewExpenseHandler(service ExpenseServiceInterface) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// expenseResponse は支出のAPIレスポンス。
type expenseResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Date        time.Time         `json:"date"`
	Amount      float64           `json:"amount"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	IsPrivate   bool              `json:"is_private"`
	VisibleTo   []string          `json:"visible_to"`
	Comments    []commentResponse `json:"comments"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// commentResponse はコメントのAPIレスポンス。
// ソフトデリート済みコメントは本文を伏せて返す。
type commentResponse struct {
	ID          string     `json:"id"`
	Body        string     `json:"body"`
	CommentedBy string     `json:"commented_by"`
	CommentedAt time.Time  `json:"commented_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Deleted     bool       `json:"deleted"`
}

// expenseRequest は支出作成・更新リクエストのボディ。
type expenseRequest struct {
	Title       *string    `json:"title"`
	Date        *time.Time `json:"date"`
	Amount      *float64   `json:"amount"`
	Category    *string    `json:"category"`
	Description *string    `json:"description"`
	IsPrivate   *bool      `json:"is_private"`
	VisibleTo   []string   `json:"visible_to"`
}

// commentRequest はコメント作成・更新リクエストのボディ。
type commentRequest struct {
	Body string `json:"body"`
}

// ListExpenses は閲覧可能な支出の一覧を取得する。
// GET /api/expenses
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}

	expenses, err := h.service.ListExpenses(r.Context(), principal.Role)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		responses[i] = toExpenseResponse(e)
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetExpense は指定IDの支出をコメント込みで取得する。
// GET /api/expenses/{id}
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}

	e, err := h.service.GetExpense(r.Context(), principal.Role, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// CreateExpense は支出を作成する。
// POST /api/expenses
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	input := expense.CreateExpenseInput{}
	if req.Title != nil {
		input.Title = *req.Title
	}
	if req.Date != nil {
		input.Date = *req.Date
	}
	if req.Amount != nil {
		input.Amount = *req.Amount
	}
	if req.Category != nil {
		input.Category = *req.Category
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.IsPrivate != nil {
		input.IsPrivate = *req.IsPrivate
	}
	roles, apiErr := parseRoles(req.VisibleTo)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	input.VisibleTo = roles

	e, err := h.service.CreateExpense(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

// UpdateExpense は支出の属性を更新する。
// PUT /api/expenses/{id}
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	roles, apiErr := parseRoles(req.VisibleTo)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	input := expense.UpdateExpenseInput{
		Title:       req.Title,
		Date:        req.Date,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		VisibleTo:   roles,
	}

	e, err := h.service.UpdateExpense(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// DeleteExpense は支出をコメントごと削除する。
// DELETE /api/expenses/{id}
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment は支出にコメントを追加する。
// POST /api/expenses/{id}/comments
func (h *ExpenseHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	comment, err := h.service.AddComment(r.Context(), principal, chi.URLParam(r, "id"), req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(*comment))
}

// UpdateComment は作成者本人のコメント本文を更新する。
// PUT /api/expenses/{id}/comments/{commentID}
func (h *ExpenseHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	err := h.service.UpdateComment(r.Context(), principal, chi.URLParam(r, "id"), chi.URLParam(r, "commentID"), req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteComment は作成者本人のコメントをソフトデリートする。
// DELETE /api/expenses/{id}/comments/{commentID}
func (h *ExpenseHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}

	err := h.service.DeleteComment(r.Context(), principal, chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toExpenseResponse はmodel.ExpenseからAPIレスポンスに変換する。
func toExpenseResponse(e *model.Expense) expenseResponse {
	visibleTo := make([]string, len(e.VisibleTo))
	for i, role := range e.VisibleTo {
		visibleTo[i] = string(role)
	}

	comments := make([]commentResponse, len(e.Comments))
	for i, c := range e.Comments {
		comments[i] = toCommentResponse(c)
	}

	return expenseResponse{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		IsPrivate:   e.IsPrivate,
		VisibleTo:   visibleTo,
		Comments:    comments,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// toCommentResponse はmodel.CommentからAPIレスポンスに変換する。
func toCommentResponse(c model.Comment) commentResponse {
	resp := commentResponse{
		ID:          c.ID,
		Body:        c.Body,
		CommentedBy: c.CommentedBy,
		CommentedAt: c.CommentedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.DeletedAt != nil {
		resp.Deleted = true
		resp.Body = ""
	}
	return resp
}

// parseRoles は文字列のロール一覧をmodel.Roleに変換する。
// nilはnilのまま返す（未指定の意味を保つ）。
func parseRoles(values []string) ([]model.Role, *model.APIError) {
	if values == nil {
		return nil, nil
	}
	roles := make([]model.Role, len(values))
	for i, v := range values {
		role, ok := model.ParseRole(v)
		if !ok {
			return nil, model.NewInvalidRoleError(v)
		}
		roles[i] = role
	}
	return roles, nil
}
