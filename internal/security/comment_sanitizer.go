// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizerService は支出コメントの本文をサニタイズし、
// XSS攻撃などのセキュリティリスクから家族メンバーを保護する。
// bluemondayライブラリの厳格ポリシーで、HTMLタグを全て除去し
// プレーンテキストのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// CommentSanitizerService はコメント本文のサニタイズ機能のインターフェースを定義する。
// コメントの保存前および更新前に使用される。
type CommentSanitizerService interface {
	// Sanitize はコメント本文をサニタイズして安全なテキストを返す。
	// HTMLタグは全て除去され、テキストノードのみが残る。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// commentSanitizer はCommentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はCommentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyを使用するため、script, iframe, style を含む
// 全てのタグと属性が除去される。
func NewCommentSanitizer() *commentSanitizer {
	return &commentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はコメント本文からHTMLタグを除去する。
func (s *commentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.policy.Sanitize(raw)
}

// インターフェース適合性のコンパイル時チェック
var _ CommentSanitizerService = (*commentSanitizer)(nil)
