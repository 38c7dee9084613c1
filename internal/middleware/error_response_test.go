package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/kakeibo/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一フォーマットでエラーが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInvalidToken {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidToken)
	}
	if body.Message == "" {
		t.Error("expected non-empty message")
	}
	if body.Category == "" {
		t.Error("expected non-empty category")
	}
	if body.Action == "" {
		t.Error("expected non-empty action")
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーが一般的なメッセージで返ることを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want %q", body.Category, "system")
	}
}

// TestStatusForAPIError はエラーコードからHTTPステータスへの対応を検証する。
func TestStatusForAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{name: "ロックアウト", err: model.NewRateLimitedError(), want: http.StatusTooManyRequests},
		{name: "不正なトークン", err: model.NewInvalidTokenError(), want: http.StatusUnauthorized},
		{name: "無効化済みセッション", err: model.NewSessionRevokedError(), want: http.StatusUnauthorized},
		{name: "期限切れセッション", err: model.NewSessionExpiredError(), want: http.StatusUnauthorized},
		{name: "存在しないアカウント", err: model.NewAccountNotFoundError(), want: http.StatusUnauthorized},
		{name: "未認証", err: model.NewUnauthorizedError(), want: http.StatusUnauthorized},
		{name: "不正なアクセスコード", err: model.NewInvalidAccessCodeError(), want: http.StatusUnauthorized},
		{name: "期限切れアクセスコード", err: model.NewAccessCodeExpiredError(), want: http.StatusUnauthorized},
		{name: "制限付きアカウント", err: model.NewAccountRestrictedError(), want: http.StatusForbidden},
		{name: "権限不足", err: model.NewForbiddenError(), want: http.StatusForbidden},
		{name: "存在しない支出", err: model.NewExpenseNotFoundError("expense-1"), want: http.StatusNotFound},
		{name: "存在しないコメント", err: model.NewCommentNotFoundError(), want: http.StatusNotFound},
		{name: "存在しないセッション", err: model.NewSessionNotFoundError("session-1"), want: http.StatusNotFound},
		{name: "存在しない参加リクエスト", err: model.NewRequestNotFoundError("request-1"), want: http.StatusNotFound},
		{name: "不正なロール", err: model.NewInvalidRoleError("owner"), want: http.StatusBadRequest},
		{name: "不正なリクエスト", err: model.NewInvalidRequestError("理由"), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForAPIError(tt.err); got != tt.want {
				t.Errorf("StatusForAPIError(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}
