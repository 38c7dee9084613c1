package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresLoginAttemptRepo はPostgreSQLを使用した失敗試行リポジトリ。
type PostgresLoginAttemptRepo struct {
	db *sql.DB
}

// NewPostgresLoginAttemptRepo はPostgresLoginAttemptRepoを生成する。
func NewPostgresLoginAttemptRepo(db *sql.DB) *PostgresLoginAttemptRepo {
	return &PostgresLoginAttemptRepo{db: db}
}

// RecordAttempt は試行を1件記録し、更新後の試行回数を返す。
// 前回試行からwindow以上経過している場合はカウントを1にリセットし、
// そうでなければインクリメントする。read-then-writeではなく1文のUPSERTで
// 行うため、同一IPからの並行試行はPostgreSQLの行ロックで直列化され、
// カウントの取りこぼしや二重加算は発生しない。異なるIP同士は競合しない。
func (r *PostgresLoginAttemptRepo) RecordAttempt(ctx context.Context, ip string, window time.Duration) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO login_attempts (ip_address, attempts, last_attempt_at)
		 VALUES ($1, 1, now())
		 ON CONFLICT (ip_address) DO UPDATE SET
		     attempts = CASE
		         WHEN login_attempts.last_attempt_at <= now() - make_interval(secs => $2)
		             THEN 1
		         ELSE login_attempts.attempts + 1
		     END,
		     last_attempt_at = now()
		 RETURNING attempts`,
		ip, window.Seconds(),
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return attempts, nil
}

// FindByIP は指定IPの試行レコードを取得する。見つからない場合はnilを返す。
func (r *PostgresLoginAttemptRepo) FindByIP(ctx context.Context, ip string) (*model.LoginAttempt, error) {
	attempt := &model.LoginAttempt{}
	err := r.db.QueryRowContext(ctx,
		`SELECT ip_address, attempts, last_attempt_at
		 FROM login_attempts WHERE ip_address = $1`,
		ip,
	).Scan(&attempt.IPAddress, &attempt.Attempts, &attempt.LastAttemptAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find login attempt: %w", err)
	}
	return attempt, nil
}

// List は全試行レコードを最終試行時刻の降順で返す。
func (r *PostgresLoginAttemptRepo) List(ctx context.Context) ([]*model.LoginAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ip_address, attempts, last_attempt_at
		 FROM login_attempts ORDER BY last_attempt_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.LoginAttempt
	for rows.Next() {
		a := &model.LoginAttempt{}
		if err := rows.Scan(&a.IPAddress, &a.Attempts, &a.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate login attempts: %w", err)
	}
	return attempts, nil
}

// compile-time interface check
var _ LoginAttemptRepository = (*PostgresLoginAttemptRepo)(nil)
