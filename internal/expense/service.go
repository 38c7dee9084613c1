// Package expense は支出とコメント管理のドメインロジックを提供する。
package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
	"github.com/hitoshi/kakeibo/internal/security"
)

// CreateExpenseInput は支出作成の入力。
type CreateExpenseInput struct {
	Title       string
	Date        time.Time
	Amount      float64
	Category    string
	Description string
	IsPrivate   bool
	VisibleTo   []model.Role
}

// UpdateExpenseInput は支出更新の入力。nilのフィールドは変更しない。
type UpdateExpenseInput struct {
	Title       *string
	Date        *time.Time
	Amount      *float64
	Category    *string
	Description *string
	IsPrivate   *bool
	VisibleTo   []model.Role
}

// Service は支出管理のサービス層。
// ロール別の閲覧制御、CRUD、コメントの追加・更新・ソフトデリートを提供する。
type Service struct {
	expenseRepo repository.ExpenseRepository
	sanitizer   security.CommentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(expenseRepo repository.ExpenseRepository, sanitizer security.CommentSanitizerService) *Service {
	return &Service{
		expenseRepo: expenseRepo,
		sanitizer:   sanitizer,
	}
}

// ListExpenses は指定ロールが閲覧可能な支出を返す。
// 管理者は非公開を含む全支出を閲覧できる。
func (s *Service) ListExpenses(ctx context.Context, role model.Role) ([]*model.Expense, error) {
	if role == model.RoleAdmin {
		expenses, err := s.expenseRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("支出一覧の取得に失敗しました: %w", err)
		}
		return expenses, nil
	}

	expenses, err := s.expenseRepo.ListVisibleTo(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("支出一覧の取得に失敗しました: %w", err)
	}
	return expenses, nil
}

// GetExpense は指定IDの支出をコメント込みで返す。
// 指定ロールに閲覧権限がない場合は存在しないものとして扱う。
func (s *Service) GetExpense(ctx context.Context, role model.Role, id string) (*model.Expense, error) {
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("支出の取得に失敗しました: %w", err)
	}
	if expense == nil || !expense.VisibleToRole(role) {
		return nil, model.NewExpenseNotFoundError(id)
	}
	return expense, nil
}

// CreateExpense は支出を作成する。
func (s *Service) CreateExpense(ctx context.Context, input CreateExpenseInput) (*model.Expense, error) {
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("titleは必須です。")
	}
	if input.Amount < 0 {
		return nil, model.NewInvalidRequestError("amountは0以上である必要があります。")
	}

	now := time.Now()
	expense := &model.Expense{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Date:        input.Date,
		Amount:      input.Amount,
		Category:    input.Category,
		Description: input.Description,
		IsPrivate:   input.IsPrivate,
		VisibleTo:   input.VisibleTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if expense.Date.IsZero() {
		expense.Date = now
	}
	if expense.VisibleTo == nil {
		expense.VisibleTo = []model.Role{model.RoleFamily}
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("支出の作成に失敗しました: %w", err)
	}

	return expense, nil
}

// UpdateExpense は支出の属性を更新する。
func (s *Service) UpdateExpense(ctx context.Context, id string, input UpdateExpenseInput) (*model.Expense, error) {
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("支出の取得に失敗しました: %w", err)
	}
	if expense == nil {
		return nil, model.NewExpenseNotFoundError(id)
	}

	if input.Title != nil {
		expense.Title = *input.Title
	}
	if input.Date != nil {
		expense.Date = *input.Date
	}
	if input.Amount != nil {
		if *input.Amount < 0 {
			return nil, model.NewInvalidRequestError("amountは0以上である必要があります。")
		}
		expense.Amount = *input.Amount
	}
	if input.Category != nil {
		expense.Category = *input.Category
	}
	if input.Description != nil {
		expense.Description = *input.Description
	}
	if input.IsPrivate != nil {
		expense.IsPrivate = *input.IsPrivate
	}
	if input.VisibleTo != nil {
		expense.VisibleTo = input.VisibleTo
	}
	expense.UpdatedAt = time.Now()

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("支出の更新に失敗しました: %w", err)
	}

	return expense, nil
}

// DeleteExpense は指定IDの支出をコメントごと削除する。
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("支出の取得に失敗しました: %w", err)
	}
	if expense == nil {
		return model.NewExpenseNotFoundError(id)
	}

	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("支出の削除に失敗しました: %w", err)
	}

	return nil
}

// AddComment は支出にコメントを追加する。
// 本文はサニタイズされ、対象の支出が閲覧可能である必要がある。
func (s *Service) AddComment(ctx context.Context, principal *model.Principal, expenseID, body string) (*model.Comment, error) {
	body = s.sanitizer.Sanitize(body)
	if body == "" {
		return nil, model.NewInvalidRequestError("コメント本文は必須です。")
	}

	expense, err := s.expenseRepo.FindByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("支出の取得に失敗しました: %w", err)
	}
	if expense == nil || !expense.VisibleToRole(principal.Role) {
		return nil, model.NewExpenseNotFoundError(expenseID)
	}

	comment := &model.Comment{
		ID:          uuid.New().String(),
		ExpenseID:   expenseID,
		Body:        body,
		CommentedBy: principal.AccountID,
		CommentedAt: time.Now(),
	}

	if err := s.expenseRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("コメントの追加に失敗しました: %w", err)
	}

	return comment, nil
}

// UpdateComment は作成者本人のコメント本文を更新する。
// 他人のコメントは存在しないものとして扱う。
func (s *Service) UpdateComment(ctx context.Context, principal *model.Principal, expenseID, commentID, body string) error {
	body = s.sanitizer.Sanitize(body)
	if body == "" {
		return model.NewInvalidRequestError("コメント本文は必須です。")
	}

	updated, err := s.expenseRepo.UpdateComment(ctx, expenseID, commentID, principal.AccountID, body, time.Now())
	if err != nil {
		return fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}
	if !updated {
		return model.NewCommentNotFoundError()
	}

	return nil
}

// DeleteComment は作成者本人のコメントをソフトデリートする。
// 他人のコメントは存在しないものとして扱う。
func (s *Service) DeleteComment(ctx context.Context, principal *model.Principal, expenseID, commentID string) error {
	deleted, err := s.expenseRepo.SoftDeleteComment(ctx, expenseID, commentID, principal.AccountID, time.Now())
	if err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewCommentNotFoundError()
	}

	return nil
}
