package model

import "time"

// RequestStatus は参加リクエストの処理状態を表す。
type RequestStatus string

const (
	// RequestStatusPending は未処理状態。
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved は承認済み状態。
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected は却下済み状態。
	RequestStatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus は文字列をRequestStatusに変換する。未知の値の場合はfalseを返す。
func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return RequestStatus(s), true
	default:
		return "", false
	}
}

// JoinRequest はアクセス権を求める参加リクエストを表す。
// 認証不要で作成でき、リクエスト元のIPアドレスを記録する。
type JoinRequest struct {
	ID            string
	Name          string
	RequestedRole Role // viewerまたはfamilyのみ
	Status        RequestStatus
	IPAddress     string
	CreatedAt     time.Time
}
