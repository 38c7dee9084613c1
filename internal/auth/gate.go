// Package auth は認証ゲートとログインフローを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/kakeibo/internal/lockout"
	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
	"github.com/hitoshi/kakeibo/internal/token"
)

const bearerPrefix = "Bearer "

// DecisionRecorder は認証判定のメトリクス記録インターフェース。
type DecisionRecorder interface {
	RecordAuthDecision(outcome string)
	RecordLockoutDenial()
}

// noopRecorder はメトリクス未設定時のDecisionRecorder。
type noopRecorder struct{}

func (noopRecorder) RecordAuthDecision(string) {}
func (noopRecorder) RecordLockoutDenial()      {}

// Gate はリクエストごとに1回実行される認証ゲート。
// ベアラートークンの検証、セッション・アカウント状態の確認、
// 失敗試行のロックアウト判定、IP監査の更新を行う。
type Gate struct {
	codec       *token.Codec
	sessionRepo repository.SessionRepository
	accountRepo repository.AccountRepository
	tracker     *lockout.Tracker
	recorder    DecisionRecorder
}

// NewGate はGateを生成する。
func NewGate(
	codec *token.Codec,
	sessionRepo repository.SessionRepository,
	accountRepo repository.AccountRepository,
	tracker *lockout.Tracker,
) *Gate {
	return &Gate{
		codec:       codec,
		sessionRepo: sessionRepo,
		accountRepo: accountRepo,
		tracker:     tracker,
		recorder:    noopRecorder{},
	}
}

// WithRecorder は認証判定のメトリクス記録先を設定する。
func (g *Gate) WithRecorder(recorder DecisionRecorder) *Gate {
	if recorder != nil {
		g.recorder = recorder
	}
	return g
}

// Evaluate はリクエストの認証判定を行う。
//
// 資格情報なし（ヘッダー欠落・形式不正）の場合は失敗試行として記録し、
// ロックアウト閾値内であればプリンシパルなし（nil, nil）で通過させる。
// 公開ルートの存在が前提であり、保護ルートの認可はルーター側のガードが担う。
//
// 資格情報ありの場合は署名検証→セッション照合→アカウント照合→期限再確認の順に
// 評価し、途中のどの段階でも拒否はカテゴリ付きの*model.APIErrorとして返す。
// ストア障害は認証拒否と区別し、ラップしたエラーとしてそのまま伝播させる。
func (g *Gate) Evaluate(ctx context.Context, authorization, sourceIP string) (*model.Principal, error) {
	raw, ok := extractBearer(authorization)
	if !ok {
		return g.evaluateAnonymous(ctx, sourceIP)
	}

	// 1. 署名検証。クレームはここを通過するまで一切信用しない。
	claims, err := g.codec.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			g.recorder.RecordAuthDecision("session_expired")
			return nil, model.NewSessionExpiredError()
		}
		g.recorder.RecordAuthDecision("invalid_token")
		return nil, model.NewInvalidTokenError()
	}

	// 2. セッション照合。存在しない・revoked・bannedのいずれも拒否。
	session, err := g.sessionRepo.FindByAccountAndToken(ctx, claims.Subject, raw)
	if err != nil {
		return nil, fmt.Errorf("auth: session lookup failed: %w", err)
	}
	if session == nil || session.Denied() {
		g.recorder.RecordAuthDecision("session_revoked")
		return nil, model.NewSessionRevokedError()
	}

	// 3. アカウント照合。セッションのフラグとは独立に評価する。
	account, err := g.accountRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("auth: account lookup failed: %w", err)
	}
	if account == nil {
		g.recorder.RecordAuthDecision("account_not_found")
		return nil, model.NewAccountNotFoundError()
	}
	if account.Restricted() {
		g.recorder.RecordAuthDecision("account_restricted")
		return nil, model.NewAccountRestrictedError()
	}

	// 4. 有効期限の再確認。ストア照合中に期限を跨いだ場合もここで拒否する。
	if claims.ExpiresAt != nil && !time.Now().Before(claims.ExpiresAt.Time) {
		g.recorder.RecordAuthDecision("session_expired")
		return nil, model.NewSessionExpiredError()
	}

	// 5. IP監査の更新。最終観測IPの上書きと履歴への冪等な追記。
	if err := g.accountRepo.RecordSeenIP(ctx, account.ID, sourceIP); err != nil {
		return nil, fmt.Errorf("auth: failed to record seen ip: %w", err)
	}

	g.recorder.RecordAuthDecision("allowed")
	return &model.Principal{
		AccountID: account.ID,
		Role:      account.Role,
		Name:      claims.Name,
	}, nil
}

// evaluateAnonymous は資格情報なしリクエストを失敗試行として記録し、
// ロックアウト判定の結果に従って匿名通過または拒否を返す。
func (g *Gate) evaluateAnonymous(ctx context.Context, sourceIP string) (*model.Principal, error) {
	allowed, err := g.tracker.RecordAttempt(ctx, sourceIP)
	if err != nil {
		return nil, fmt.Errorf("auth: lockout tracking failed: %w", err)
	}
	if !allowed {
		g.recorder.RecordAuthDecision("rate_limited")
		g.recorder.RecordLockoutDenial()
		slog.Warn("anonymous request denied by lockout",
			slog.String("ip", sourceIP),
		)
		return nil, model.NewRateLimitedError()
	}

	g.recorder.RecordAuthDecision("anonymous")
	return nil, nil
}

// extractBearer はAuthorizationヘッダーからベアラートークンを取り出す。
// 形式不正（スキーム不一致、トークン空）は欠落と同じ扱いにする。
func extractBearer(authorization string) (string, bool) {
	if len(authorization) <= len(bearerPrefix) {
		return "", false
	}
	if !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(authorization[len(bearerPrefix):])
	if raw == "" {
		return "", false
	}
	return raw, true
}
