package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountColumns = `id, name, code, role, valid_until, is_active,
	 last_login, last_logout, last_ip_address, log_ip_addresses,
	 is_revoked, is_banned, created_at, updated_at`

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// FindByCode はアクセスコードでアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByCode(ctx context.Context, code string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code)
	return scanAccount(row)
}

// List は全アカウントを作成日時の降順で返す。
func (r *PostgresAccountRepo) List(ctx context.Context) ([]*model.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
}

// ListBanned は禁止済みアカウントを返す。
func (r *PostgresAccountRepo) ListBanned(ctx context.Context) ([]*model.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_banned ORDER BY created_at DESC`)
}

func (r *PostgresAccountRepo) list(ctx context.Context, query string) ([]*model.Account, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Create はアカウントを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, a *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, code, role, valid_until, is_active,
		     last_ip_address, log_ip_addresses, is_revoked, is_banned, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Name, a.Code, a.Role, a.ValidUntil, a.IsActive,
		a.LastIPAddress, pq.Array(a.LogIPAddresses), a.IsRevoked, a.IsBanned,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Update はアカウントの属性を更新する。
// IP監査フィールドはRecordSeenIPのみが更新するため対象に含めない。
func (r *PostgresAccountRepo) Update(ctx context.Context, a *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET
		     name = $2, code = $3, role = $4, valid_until = $5, is_active = $6,
		     is_revoked = $7, is_banned = $8, updated_at = $9
		 WHERE id = $1`,
		a.ID, a.Name, a.Code, a.Role, a.ValidUntil, a.IsActive,
		a.IsRevoked, a.IsBanned, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// Delete は指定IDのアカウントを削除する。
func (r *PostgresAccountRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// RecordSeenIP は最終観測IPを上書きし、IP履歴に未登録の場合のみ追記する。
// 1文のUPDATEで行うため、同一アカウントが別IPから並行して認証しても
// 行ロックにより履歴更新が失われることはない。再追記は冪等（no-op）。
func (r *PostgresAccountRepo) RecordSeenIP(ctx context.Context, accountID, ip string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET
		     last_ip_address = $2,
		     log_ip_addresses = CASE
		         WHEN $2 = ANY(log_ip_addresses) THEN log_ip_addresses
		         ELSE array_append(log_ip_addresses, $2)
		     END,
		     updated_at = now()
		 WHERE id = $1`,
		accountID, ip,
	)
	if err != nil {
		return fmt.Errorf("failed to record seen ip: %w", err)
	}
	return nil
}

// StampLogin はログイン成功時刻とIP監査情報を記録する。
func (r *PostgresAccountRepo) StampLogin(ctx context.Context, accountID, ip string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET
		     last_login = $2,
		     last_ip_address = $3,
		     log_ip_addresses = CASE
		         WHEN $3 = ANY(log_ip_addresses) THEN log_ip_addresses
		         ELSE array_append(log_ip_addresses, $3)
		     END,
		     updated_at = now()
		 WHERE id = $1`,
		accountID, at, ip,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp login: %w", err)
	}
	return nil
}

// StampLogout はログアウト時刻を記録する。
func (r *PostgresAccountRepo) StampLogout(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_logout = $2, updated_at = now() WHERE id = $1`,
		accountID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp logout: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	a := &model.Account{}
	var validUntil, lastLogin, lastLogout sql.NullTime
	var lastIP sql.NullString
	var role string

	err := row.Scan(
		&a.ID, &a.Name, &a.Code, &role, &validUntil, &a.IsActive,
		&lastLogin, &lastLogout, &lastIP, pq.Array(&a.LogIPAddresses),
		&a.IsRevoked, &a.IsBanned, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	a.Role = model.Role(role)
	if validUntil.Valid {
		a.ValidUntil = &validUntil.Time
	}
	if lastLogin.Valid {
		a.LastLogin = &lastLogin.Time
	}
	if lastLogout.Valid {
		a.LastLogout = &lastLogout.Time
	}
	if lastIP.Valid {
		a.LastIPAddress = lastIP.String
	}

	return a, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
