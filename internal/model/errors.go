package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 機械可読なコードと、UIに表示する原因カテゴリ・対処方法を含む。
// 内部識別子やスタックトレースは含めない。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, expense, account, session, request, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	// 認証ゲートの拒否カテゴリ
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInvalidToken      = "INVALID_TOKEN"
	ErrCodeSessionRevoked    = "SESSION_REVOKED"
	ErrCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	ErrCodeAccountRestricted = "ACCOUNT_RESTRICTED"
	ErrCodeSessionExpired    = "SESSION_EXPIRED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"

	// ログインフロー
	ErrCodeInvalidAccessCode = "INVALID_ACCESS_CODE"
	ErrCodeAccessCodeExpired = "ACCESS_CODE_EXPIRED"

	// CRUDリソース
	ErrCodeExpenseNotFound    = "EXPENSE_NOT_FOUND"
	ErrCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	ErrCodeAccessCodeNotFound = "ACCESS_CODE_NOT_FOUND"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeRequestNotFound    = "REQUEST_NOT_FOUND"

	// バリデーション
	ErrCodeInvalidRole    = "INVALID_ROLE"
	ErrCodeInvalidStatus  = "INVALID_STATUS"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// NewRateLimitedError はロックアウトによる拒否エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "このIPアドレスからの失敗試行が多すぎます。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidTokenError はトークンの署名・形式不正エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewSessionRevokedError はセッション失効エラーを生成する。
// セッションが存在しない、無効化済み、または禁止済みの場合に使用する。
func NewSessionRevokedError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionRevoked,
		Message:  "セッションは無効化されています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "アカウントが見つかりません。",
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewAccountRestrictedError はアカウント制限エラーを生成する。
// アカウントがrevokedまたはbannedの場合に使用する。
func NewAccountRestrictedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountRestricted,
		Message:  "このアカウントは利用が制限されています。",
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewSessionExpiredError はトークン有効期限切れエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUnauthorizedError は認証必須エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewInvalidAccessCodeError は無効なアクセスコードエラーを生成する。
func NewInvalidAccessCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAccessCode,
		Message:  "アクセスコードが無効です。",
		Category: "auth",
		Action:   "アクセスコードを確認してください。",
	}
}

// NewAccessCodeExpiredError はアクセスコード期限切れエラーを生成する。
func NewAccessCodeExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessCodeExpired,
		Message:  "アクセスコードの有効期限が切れています。",
		Category: "auth",
		Action:   "管理者に新しいアクセスコードを依頼してください。",
	}
}

// NewExpenseNotFoundError は支出未検出エラーを生成する。
func NewExpenseNotFoundError(expenseID string) *APIError {
	return &APIError{
		Code:     ErrCodeExpenseNotFound,
		Message:  fmt.Sprintf("指定された支出が見つかりません: %s", expenseID),
		Category: "expense",
		Action:   "支出IDを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
// コメントが存在しない場合と、操作者が作成者でない場合の両方で使用する。
func NewCommentNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  "コメントが見つからないか、操作する権限がありません。",
		Category: "expense",
		Action:   "自分が投稿したコメントのみ変更できます。",
	}
}

// NewAccessCodeNotFoundError はアクセスコード未検出エラーを生成する。
func NewAccessCodeNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAccessCodeNotFound,
		Message:  fmt.Sprintf("指定されたアクセスコードが見つかりません: %s", id),
		Category: "account",
		Action:   "アクセスコードIDを確認してください。",
	}
}

// NewSessionNotFoundError はセッション未検出エラーを生成する。
func NewSessionNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定されたセッションが見つかりません: %s", id),
		Category: "session",
		Action:   "セッションIDを確認してください。",
	}
}

// NewRequestNotFoundError は参加リクエスト未検出エラーを生成する。
func NewRequestNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotFound,
		Message:  fmt.Sprintf("指定された参加リクエストが見つかりません: %s", id),
		Category: "request",
		Action:   "リクエストIDを確認してください。",
	}
}

// NewInvalidRoleError は無効なロールエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには viewer、family、admin のいずれかを指定してください。",
	}
}

// NewInvalidStatusError は無効なステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには approved または rejected を指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}
