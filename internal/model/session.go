package model

import "time"

// Session は発行済みトークン1件の状態を表す。
// RevokedとBannedはfalse→trueの一方向にのみ遷移する。
type Session struct {
	ID        string
	AccountID string
	Token     string
	Revoked   bool
	Banned    bool
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Denied はセッションが認証を拒否されるべき状態かどうかを返す。
func (s *Session) Denied() bool {
	return s.Revoked || s.Banned
}

// LoginAttempt は送信元IPごとの失敗試行レコードを表す。
// 削除されることはなく、上書きのみ行われる。
type LoginAttempt struct {
	IPAddress     string
	Attempts      int
	LastAttemptAt time.Time
}
