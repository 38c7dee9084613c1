// Package model はドメインモデルを定義する。
package model

import "time"

// Role はアカウントの権限ロールを表す。閉じた集合として扱う。
type Role string

const (
	// RoleViewer は閲覧のみ可能なロール。
	RoleViewer Role = "viewer"
	// RoleFamily は家族メンバーのロール。コメント投稿が可能。
	RoleFamily Role = "family"
	// RoleAdmin は管理者ロール。全操作が可能。
	RoleAdmin Role = "admin"
)

// ParseRole は文字列をRoleに変換する。未知の値の場合はfalseを返す。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleViewer, RoleFamily, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Account は認証主体となるアカウントを表す。
// IsBanned ⇒ IsRevoked ⇒ !IsActive の関係はアカウント変更操作側で正規化する
// （フラグの不変条件はaccountサービスが保証し、認証ゲートは観測のみ行う）。
type Account struct {
	ID            string
	Name          string
	Code          string // アクセスコード（ログイン資格情報、一意）
	Role          Role
	ValidUntil    *time.Time
	IsActive      bool
	LastLogin     *time.Time
	LastLogout    *time.Time
	LastIPAddress string
	// LogIPAddresses はこれまでに観測した送信元IPの集合。重複なし、追記のみ。
	LogIPAddresses []string
	IsRevoked      bool
	IsBanned       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Restricted はアカウントが認証を拒否されるべき状態かどうかを返す。
// revokedとbannedはそれぞれ独立に拒否理由となる。
func (a *Account) Restricted() bool {
	return a.IsRevoked || a.IsBanned
}

// AccessCode は旧来の招待用アクセスコードレコードを表す。
// アカウントとは独立した管理リソースとしてCRUDのみ提供する。
type AccessCode struct {
	ID             string
	Name           string
	Code           string
	Role           Role
	ValidUntil     *time.Time
	IsActive       bool
	LastLogin      *time.Time
	LogIPAddresses []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Principal は認証成功後にリクエストへ付与される解決済みの主体を表す。
type Principal struct {
	AccountID string
	Role      Role
	Name      string
}
