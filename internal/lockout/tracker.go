// Package lockout は送信元IPごとの失敗試行の記録と遮断判定を提供する。
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// Config はロックアウト判定の設定。起動時に固定され変更されない。
type Config struct {
	// MaxAttempts はウィンドウ内で許可する最大試行回数。
	MaxAttempts int
	// Window は試行カウントがリセットされるまでの期間。
	Window time.Duration
}

// Tracker は送信元IPごとの失敗試行を記録し、追加の試行を許可するか判定する。
// レコードの更新はリポジトリのアトミックなUPSERTに委ねるため、
// Tracker自体はミュータブルな状態を持たない。
type Tracker struct {
	repo   repository.LoginAttemptRepository
	config Config
}

// NewTracker はTrackerを生成する。
func NewTracker(repo repository.LoginAttemptRepository, config Config) *Tracker {
	return &Tracker{
		repo:   repo,
		config: config,
	}
}

// RecordAttempt は指定IPからの試行を1件記録し、その試行を許可するかどうかを返す。
// 前回試行からウィンドウ以上経過していればカウントは1にリセットされ許可される。
// ウィンドウ内でカウントが上限を超えた試行は、ウィンドウが経過するまで全て拒否される。
func (t *Tracker) RecordAttempt(ctx context.Context, ip string) (bool, error) {
	attempts, err := t.repo.RecordAttempt(ctx, ip, t.config.Window)
	if err != nil {
		return false, fmt.Errorf("lockout: failed to record attempt: %w", err)
	}

	allowed := attempts <= t.config.MaxAttempts
	if !allowed {
		slog.Warn("lockout threshold exceeded",
			slog.String("ip", ip),
			slog.Int("attempts", attempts),
			slog.Int("max_attempts", t.config.MaxAttempts),
		)
	}

	return allowed, nil
}

// ListAttempts は全試行レコードを最終試行時刻の降順で返す。
// 管理者向けの監査用。
func (t *Tracker) ListAttempts(ctx context.Context) ([]*model.LoginAttempt, error) {
	attempts, err := t.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("lockout: failed to list attempts: %w", err)
	}
	return attempts, nil
}

// FindAttempt は指定IPの試行レコードを返す。見つからない場合はnilを返す。
func (t *Tracker) FindAttempt(ctx context.Context, ip string) (*model.LoginAttempt, error) {
	attempt, err := t.repo.FindByIP(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("lockout: failed to find attempt: %w", err)
	}
	return attempt, nil
}
