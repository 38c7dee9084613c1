package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresExpenseRepo はPostgreSQLを使用した支出リポジトリ。
type PostgresExpenseRepo struct {
	db *sql.DB
}

// NewPostgresExpenseRepo はPostgresExpenseRepoを生成する。
func NewPostgresExpenseRepo(db *sql.DB) *PostgresExpenseRepo {
	return &PostgresExpenseRepo{db: db}
}

const expenseColumns = `id, title, date, amount, category, description,
	 is_private, visible_to, created_at, updated_at`

// FindByID は指定IDの支出をコメント込みで取得する。見つからない場合はnilを返す。
func (r *PostgresExpenseRepo) FindByID(ctx context.Context, id string) (*model.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)

	expense, err := scanExpense(row)
	if err != nil || expense == nil {
		return expense, err
	}

	comments, err := r.listComments(ctx, id)
	if err != nil {
		return nil, err
	}
	expense.Comments = comments
	return expense, nil
}

// ListVisibleTo は指定ロールが閲覧可能な支出（非公開を除く）を日付の降順で返す。
func (r *PostgresExpenseRepo) ListVisibleTo(ctx context.Context, role model.Role) ([]*model.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE NOT is_private AND $1 = ANY(visible_to)
		 ORDER BY date DESC`,
		string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return collectExpenses(rows)
}

// ListAll は全支出を日付の降順で返す（管理者向け）。
func (r *PostgresExpenseRepo) ListAll(ctx context.Context) ([]*model.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return collectExpenses(rows)
}

// Create は支出を作成する。
func (r *PostgresExpenseRepo) Create(ctx context.Context, e *model.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, title, date, amount, category, description,
		     is_private, visible_to, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Date, e.Amount, e.Category, e.Description,
		e.IsPrivate, pq.Array(rolesToStrings(e.VisibleTo)), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// Update は支出の属性を更新する。
func (r *PostgresExpenseRepo) Update(ctx context.Context, e *model.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET
		     title = $2, date = $3, amount = $4, category = $5, description = $6,
		     is_private = $7, visible_to = $8, updated_at = $9
		 WHERE id = $1`,
		e.ID, e.Title, e.Date, e.Amount, e.Category, e.Description,
		e.IsPrivate, pq.Array(rolesToStrings(e.VisibleTo)), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// Delete は指定IDの支出を削除する。コメントはCASCADE削除される。
func (r *PostgresExpenseRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// AddComment は支出にコメントを追加する。
func (r *PostgresExpenseRepo) AddComment(ctx context.Context, c *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_comments (id, expense_id, body, commented_by, commented_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ExpenseID, c.Body, c.CommentedBy, c.CommentedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// UpdateComment は作成者本人のコメント本文を更新する。
// 対象が存在しないか作成者が一致しない場合はfalseを返す。
func (r *PostgresExpenseRepo) UpdateComment(ctx context.Context, expenseID, commentID, author, body string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_comments SET body = $4, updated_at = $5
		 WHERE expense_id = $1 AND id = $2 AND commented_by = $3 AND deleted_at IS NULL`,
		expenseID, commentID, author, body, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// SoftDeleteComment は作成者本人のコメントをソフトデリートする。
// 対象が存在しないか作成者が一致しない場合はfalseを返す。
func (r *PostgresExpenseRepo) SoftDeleteComment(ctx context.Context, expenseID, commentID, author string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_comments SET deleted_at = $4
		 WHERE expense_id = $1 AND id = $2 AND commented_by = $3 AND deleted_at IS NULL`,
		expenseID, commentID, author, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// listComments は支出のコメント一覧を投稿時刻の昇順で返す。ソフトデリート済みは除外する。
func (r *PostgresExpenseRepo) listComments(ctx context.Context, expenseID string) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, body, commented_by, commented_at, updated_at, deleted_at
		 FROM expense_comments
		 WHERE expense_id = $1 AND deleted_at IS NULL
		 ORDER BY commented_at ASC`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var updatedAt, deletedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.ExpenseID, &c.Body, &c.CommentedBy, &c.CommentedAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if updatedAt.Valid {
			c.UpdatedAt = &updatedAt.Time
		}
		if deletedAt.Valid {
			c.DeletedAt = &deletedAt.Time
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

func scanExpense(row rowScanner) (*model.Expense, error) {
	e := &model.Expense{}
	var visibleTo []string

	err := row.Scan(
		&e.ID, &e.Title, &e.Date, &e.Amount, &e.Category, &e.Description,
		&e.IsPrivate, pq.Array(&visibleTo), &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	for _, s := range visibleTo {
		e.VisibleTo = append(e.VisibleTo, model.Role(s))
	}
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]*model.Expense, error) {
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

func rolesToStrings(roles []model.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// compile-time interface check
var _ ExpenseRepository = (*PostgresExpenseRepo)(nil)
