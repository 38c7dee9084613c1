// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
)

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByCode はアクセスコードでアカウントを検索する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Account, error)

	// List は全アカウントを返す。
	List(ctx context.Context) ([]*model.Account, error)

	// ListBanned は禁止済みアカウントを返す。
	ListBanned(ctx context.Context) ([]*model.Account, error)

	// Create はアカウントを作成する。
	Create(ctx context.Context, account *model.Account) error

	// Update はアカウントの属性を更新する。
	Update(ctx context.Context, account *model.Account) error

	// Delete は指定IDのアカウントを削除する。
	Delete(ctx context.Context, id string) error

	// RecordSeenIP は最終観測IPを上書きし、IP履歴に未登録の場合のみ追記する。
	// 1文のUPDATEで行い、同一アカウントの並行認証でも履歴の更新が失われないようにする。
	RecordSeenIP(ctx context.Context, accountID, ip string) error

	// StampLogin はログイン成功時刻とIP監査情報を記録する。
	StampLogin(ctx context.Context, accountID, ip string, at time.Time) error

	// StampLogout はログアウト時刻を記録する。
	StampLogout(ctx context.Context, accountID string, at time.Time) error
}

// AccessCodeRepository は旧来のアクセスコードレコードの永続化インターフェース。
type AccessCodeRepository interface {
	// FindByID は指定IDのアクセスコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AccessCode, error)
	// List は全アクセスコードを返す。
	List(ctx context.Context) ([]*model.AccessCode, error)
	// Create はアクセスコードを作成する。
	Create(ctx context.Context, code *model.AccessCode) error
	// Update はアクセスコードを更新する。
	Update(ctx context.Context, code *model.AccessCode) error
	// Delete は指定IDのアクセスコードを削除する。
	Delete(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// revoked/bannedフラグはfalse→trueにのみ遷移する。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// FindByAccountAndToken は(アカウントID, トークン)でセッションを検索する。
	// 見つからない場合はnilを返す。
	FindByAccountAndToken(ctx context.Context, accountID, token string) (*model.Session, error)

	// ListActive は無効化されていないセッションを返す。
	ListActive(ctx context.Context) ([]*model.Session, error)

	// ListRevoked は無効化済みセッションを返す。
	ListRevoked(ctx context.Context) ([]*model.Session, error)

	// Revoke は指定IDのセッションを無効化する。
	// 対象が存在しない場合はfalseを返す。
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)

	// RevokeByAccountAndID はアカウントに属する指定セッションを無効化する。
	// 対象が存在しない場合はfalseを返す。
	RevokeByAccountAndID(ctx context.Context, accountID, id string, at time.Time) (bool, error)

	// BanByAccount はアカウントの全セッションをbanned+revokedにする。
	BanByAccount(ctx context.Context, accountID string, at time.Time) error
}

// ExpenseRepository は支出データの永続化インターフェース。
type ExpenseRepository interface {
	// FindByID は指定IDの支出をコメント込みで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Expense, error)

	// ListVisibleTo は指定ロールが閲覧可能な支出（非公開を除く）を返す。
	ListVisibleTo(ctx context.Context, role model.Role) ([]*model.Expense, error)

	// ListAll は全支出を返す（管理者向け）。
	ListAll(ctx context.Context) ([]*model.Expense, error)

	// Create は支出を作成する。
	Create(ctx context.Context, expense *model.Expense) error

	// Update は支出の属性を更新する。
	Update(ctx context.Context, expense *model.Expense) error

	// Delete は指定IDの支出をコメントごと削除する。
	Delete(ctx context.Context, id string) error

	// AddComment は支出にコメントを追加する。
	AddComment(ctx context.Context, comment *model.Comment) error

	// UpdateComment は作成者本人のコメント本文を更新する。
	// 対象が存在しないか作成者が一致しない場合はfalseを返す。
	UpdateComment(ctx context.Context, expenseID, commentID, author, body string, at time.Time) (bool, error)

	// SoftDeleteComment は作成者本人のコメントをソフトデリートする。
	// 対象が存在しないか作成者が一致しない場合はfalseを返す。
	SoftDeleteComment(ctx context.Context, expenseID, commentID, author string, at time.Time) (bool, error)
}

// JoinRequestRepository は参加リクエストの永続化インターフェース。
type JoinRequestRepository interface {
	// Create は参加リクエストを作成する。
	Create(ctx context.Context, req *model.JoinRequest) error
	// FindByID は指定IDの参加リクエストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.JoinRequest, error)
	// List は全参加リクエストを返す。
	List(ctx context.Context) ([]*model.JoinRequest, error)
	// UpdateStatus はリクエストの状態を更新して返す。見つからない場合はnilを返す。
	UpdateStatus(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error)
}

// LoginAttemptRepository は送信元IPごとの失敗試行レコードの永続化インターフェース。
type LoginAttemptRepository interface {
	// RecordAttempt は試行を1件記録し、更新後の試行回数を返す。
	// 前回試行からwindow以上経過している場合はカウントを1にリセットする。
	// 1文のアトミックなUPSERTで行い、同一IPからの並行試行でカウントが失われないようにする。
	RecordAttempt(ctx context.Context, ip string, window time.Duration) (int, error)

	// FindByIP は指定IPの試行レコードを取得する。見つからない場合はnilを返す。
	FindByIP(ctx context.Context, ip string) (*model.LoginAttempt, error)

	// List は全試行レコードを最終試行時刻の降順で返す。
	List(ctx context.Context) ([]*model.LoginAttempt, error)
}
