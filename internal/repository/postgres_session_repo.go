package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

const sessionColumns = `id, account_id, token, revoked, banned, created_at, revoked_at`

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, token, revoked, banned, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.AccountID, session.Token,
		session.Revoked, session.Banned, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// FindByAccountAndToken は(アカウントID, トークン)でセッションを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByAccountAndToken(ctx context.Context, accountID, token string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE account_id = $1 AND token = $2`,
		accountID, token)
	return scanSession(row)
}

// ListActive は無効化されていないセッションを返す。
func (r *PostgresSessionRepo) ListActive(ctx context.Context) ([]*model.Session, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE NOT revoked ORDER BY created_at DESC`)
}

// ListRevoked は無効化済みセッションを返す。
func (r *PostgresSessionRepo) ListRevoked(ctx context.Context) ([]*model.Session, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE revoked ORDER BY created_at DESC`)
}

func (r *PostgresSessionRepo) list(ctx context.Context, query string) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// Revoke は指定IDのセッションを無効化する。対象が存在しない場合はfalseを返す。
// revoked_atは初回の無効化時刻を保持する（再無効化は上書きしない）。
func (r *PostgresSessionRepo) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// RevokeByAccountAndID はアカウントに属する指定セッションを無効化する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresSessionRepo) RevokeByAccountAndID(ctx context.Context, accountID, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $3)
		 WHERE account_id = $1 AND id = $2`,
		accountID, id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// BanByAccount はアカウントの全セッションをbanned+revokedにする。
// ban ⇒ revoke の不変条件をセッション側でも満たすため両フラグを立てる。
func (r *PostgresSessionRepo) BanByAccount(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET banned = TRUE, revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		 WHERE account_id = $1`,
		accountID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to ban sessions: %w", err)
	}
	return nil
}

func scanSession(row rowScanner) (*model.Session, error) {
	s := &model.Session{}
	var revokedAt sql.NullTime

	err := row.Scan(&s.ID, &s.AccountID, &s.Token, &s.Revoked, &s.Banned, &s.CreatedAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return s, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
