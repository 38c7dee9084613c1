package model

import "time"

// Expense は家計簿の支出レコードを表す。
type Expense struct {
	ID          string
	Title       string
	Date        time.Time
	Amount      float64
	Category    string
	Description string
	IsPrivate   bool
	// VisibleTo は支出を閲覧できるロールの集合。
	VisibleTo []Role
	Comments  []Comment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VisibleToRole は指定ロールがこの支出を閲覧できるかどうかを返す。
// 管理者は常に閲覧可能。
func (e *Expense) VisibleToRole(role Role) bool {
	if role == RoleAdmin {
		return true
	}
	if e.IsPrivate {
		return false
	}
	for _, r := range e.VisibleTo {
		if r == role {
			return true
		}
	}
	return false
}

// Comment は支出に付与されたコメントを表す。
// 削除はDeletedAtによるソフトデリートで行う。
type Comment struct {
	ID          string
	ExpenseID   string
	Body        string
	CommentedBy string
	CommentedAt time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
}
