package expense

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/security"
)

// --- モック ---

type mockExpenseRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.Expense, error)
	listVisibleToFn     func(ctx context.Context, role model.Role) ([]*model.Expense, error)
	listAllFn           func(ctx context.Context) ([]*model.Expense, error)
	createFn            func(ctx context.Context, expense *model.Expense) error
	addCommentFn        func(ctx context.Context, comment *model.Comment) error
	updateCommentFn     func(ctx context.Context, expenseID, commentID, author, body string, at time.Time) (bool, error)
	softDeleteCommentFn func(ctx context.Context, expenseID, commentID, author string, at time.Time) (bool, error)
}

func (m *mockExpenseRepo) FindByID(ctx context.Context, id string) (*model.Expense, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockExpenseRepo) ListVisibleTo(ctx context.Context, role model.Role) ([]*model.Expense, error) {
	return m.listVisibleToFn(ctx, role)
}
func (m *mockExpenseRepo) ListAll(ctx context.Context) ([]*model.Expense, error) {
	return m.listAllFn(ctx)
}
func (m *mockExpenseRepo) Create(ctx context.Context, expense *model.Expense) error {
	if m.createFn != nil {
		return m.createFn(ctx, expense)
	}
	return nil
}
func (m *mockExpenseRepo) Update(ctx context.Context, expense *model.Expense) error {
	return nil
}
func (m *mockExpenseRepo) Delete(ctx context.Context, id string) error {
	return nil
}
func (m *mockExpenseRepo) AddComment(ctx context.Context, comment *model.Comment) error {
	if m.addCommentFn != nil {
		return m.addCommentFn(ctx, comment)
	}
	return nil
}
func (m *mockExpenseRepo) UpdateComment(ctx context.Context, expenseID, commentID, author, body string, at time.Time) (bool, error) {
	return m.updateCommentFn(ctx, expenseID, commentID, author, body, at)
}
func (m *mockExpenseRepo) SoftDeleteComment(ctx context.Context, expenseID, commentID, author string, at time.Time) (bool, error) {
	return m.softDeleteCommentFn(ctx, expenseID, commentID, author, at)
}

func familyPrincipal() *model.Principal {
	return &model.Principal{
		AccountID: "account-1",
		Name:      "taro",
		Role:      model.RoleFamily,
	}
}

// --- テスト ---

// TestService_ListExpenses_AdminSeesAll は管理者が全支出を閲覧できることを検証する。
func TestService_ListExpenses_AdminSeesAll(t *testing.T) {
	listAllCalled := false
	repo := &mockExpenseRepo{
		listAllFn: func(ctx context.Context) ([]*model.Expense, error) {
			listAllCalled = true
			return []*model.Expense{{ID: "expense-1", IsPrivate: true}}, nil
		},
		listVisibleToFn: func(ctx context.Context, role model.Role) ([]*model.Expense, error) {
			t.Fatal("ListVisibleTo must not be called for admin")
			return nil, nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	expenses, err := svc.ListExpenses(context.Background(), model.RoleAdmin)
	if err != nil {
		t.Fatalf("ListExpenses returned error: %v", err)
	}
	if !listAllCalled {
		t.Error("expected ListAll to be called")
	}
	if len(expenses) != 1 {
		t.Errorf("got %d expenses, want 1", len(expenses))
	}
}

// TestService_ListExpenses_RoleFiltered は一般ロールの一覧がロールで絞られることを検証する。
func TestService_ListExpenses_RoleFiltered(t *testing.T) {
	var requestedRole model.Role
	repo := &mockExpenseRepo{
		listVisibleToFn: func(ctx context.Context, role model.Role) ([]*model.Expense, error) {
			requestedRole = role
			return []*model.Expense{}, nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	if _, err := svc.ListExpenses(context.Background(), model.RoleViewer); err != nil {
		t.Fatalf("ListExpenses returned error: %v", err)
	}
	if requestedRole != model.RoleViewer {
		t.Errorf("ListVisibleTo role = %q, want %q", requestedRole, model.RoleViewer)
	}
}

// TestService_GetExpense_HiddenFromRole は閲覧権限のない支出が存在しない扱いになることを検証する。
func TestService_GetExpense_HiddenFromRole(t *testing.T) {
	repo := &mockExpenseRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Expense, error) {
			return &model.Expense{
				ID:        id,
				Title:     "家賃",
				VisibleTo: []model.Role{model.RoleFamily},
			}, nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	_, err := svc.GetExpense(context.Background(), model.RoleViewer, "expense-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeExpenseNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeExpenseNotFound)
	}
}

// TestService_CreateExpense_Defaults は日付と公開範囲の既定値が補われることを検証する。
func TestService_CreateExpense_Defaults(t *testing.T) {
	svc := NewService(&mockExpenseRepo{}, security.NewCommentSanitizer())

	expense, err := svc.CreateExpense(context.Background(), CreateExpenseInput{
		Title:  "食費",
		Amount: 3200,
	})
	if err != nil {
		t.Fatalf("CreateExpense returned error: %v", err)
	}
	if expense.Date.IsZero() {
		t.Error("expected Date to default to now")
	}
	if len(expense.VisibleTo) != 1 || expense.VisibleTo[0] != model.RoleFamily {
		t.Errorf("VisibleTo = %v, want [family]", expense.VisibleTo)
	}
}

// TestService_CreateExpense_NegativeAmount は負の金額が拒否されることを検証する。
func TestService_CreateExpense_NegativeAmount(t *testing.T) {
	svc := NewService(&mockExpenseRepo{}, security.NewCommentSanitizer())

	_, err := svc.CreateExpense(context.Background(), CreateExpenseInput{
		Title:  "食費",
		Amount: -100,
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

// TestService_AddComment_Sanitizes はコメント本文がサニタイズされて保存されることを検証する。
func TestService_AddComment_Sanitizes(t *testing.T) {
	var saved *model.Comment
	repo := &mockExpenseRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Expense, error) {
			return &model.Expense{
				ID:        id,
				VisibleTo: []model.Role{model.RoleFamily},
			}, nil
		},
		addCommentFn: func(ctx context.Context, comment *model.Comment) error {
			saved = comment
			return nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	comment, err := svc.AddComment(context.Background(), familyPrincipal(), "expense-1", "<script>alert(1)</script>了解です")
	if err != nil {
		t.Fatalf("AddComment returned error: %v", err)
	}
	if comment.Body != "了解です" {
		t.Errorf("sanitized body = %q, want %q", comment.Body, "了解です")
	}
	if saved == nil {
		t.Fatal("expected AddComment to be called on repository")
	}
	if saved.CommentedBy != "account-1" {
		t.Errorf("CommentedBy = %q, want %q", saved.CommentedBy, "account-1")
	}
}

// TestService_AddComment_EmptyAfterSanitize はサニタイズ後に空になる本文が拒否されることを検証する。
func TestService_AddComment_EmptyAfterSanitize(t *testing.T) {
	svc := NewService(&mockExpenseRepo{}, security.NewCommentSanitizer())

	_, err := svc.AddComment(context.Background(), familyPrincipal(), "expense-1", "<script>alert(1)</script>")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

// TestService_AddComment_HiddenExpense は閲覧できない支出へのコメントが拒否されることを検証する。
func TestService_AddComment_HiddenExpense(t *testing.T) {
	repo := &mockExpenseRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Expense, error) {
			return &model.Expense{
				ID:        id,
				IsPrivate: true,
				VisibleTo: []model.Role{},
			}, nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	_, err := svc.AddComment(context.Background(), familyPrincipal(), "expense-1", "見えますか")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeExpenseNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeExpenseNotFound)
	}
}

// TestService_UpdateComment_AuthorScoped は作成者本人に限定した更新条件が渡ることを検証する。
func TestService_UpdateComment_AuthorScoped(t *testing.T) {
	var gotAuthor string
	repo := &mockExpenseRepo{
		updateCommentFn: func(ctx context.Context, expenseID, commentID, author, body string, at time.Time) (bool, error) {
			gotAuthor = author
			return true, nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	if err := svc.UpdateComment(context.Background(), familyPrincipal(), "expense-1", "comment-1", "修正します"); err != nil {
		t.Fatalf("UpdateComment returned error: %v", err)
	}
	if gotAuthor != "account-1" {
		t.Errorf("author = %q, want %q", gotAuthor, "account-1")
	}
}

// TestService_DeleteComment_OtherAuthor は他人のコメント削除が存在しない扱いになることを検証する。
func TestService_DeleteComment_OtherAuthor(t *testing.T) {
	repo := &mockExpenseRepo{
		softDeleteCommentFn: func(ctx context.Context, expenseID, commentID, author string, at time.Time) (bool, error) {
			return false, nil
		},
	}

	svc := NewService(repo, security.NewCommentSanitizer())

	err := svc.DeleteComment(context.Background(), familyPrincipal(), "expense-1", "comment-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeCommentNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeCommentNotFound)
	}
}
