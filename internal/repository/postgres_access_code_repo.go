package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresAccessCodeRepo はPostgreSQLを使用したアクセスコードリポジトリ。
type PostgresAccessCodeRepo struct {
	db *sql.DB
}

// NewPostgresAccessCodeRepo はPostgresAccessCodeRepoを生成する。
func NewPostgresAccessCodeRepo(db *sql.DB) *PostgresAccessCodeRepo {
	return &PostgresAccessCodeRepo{db: db}
}

const accessCodeColumns = `id, name, code, role, valid_until, is_active,
	 last_login, log_ip_addresses, created_at, updated_at`

// FindByID は指定IDのアクセスコードを取得する。見つからない場合はnilを返す。
func (r *PostgresAccessCodeRepo) FindByID(ctx context.Context, id string) (*model.AccessCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accessCodeColumns+` FROM access_codes WHERE id = $1`, id)
	return scanAccessCode(row)
}

// List は全アクセスコードを作成日時の降順で返す。
func (r *PostgresAccessCodeRepo) List(ctx context.Context) ([]*model.AccessCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accessCodeColumns+` FROM access_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list access codes: %w", err)
	}
	defer rows.Close()

	var codes []*model.AccessCode
	for rows.Next() {
		code, err := scanAccessCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate access codes: %w", err)
	}
	return codes, nil
}

// Create はアクセスコードを作成する。
func (r *PostgresAccessCodeRepo) Create(ctx context.Context, c *model.AccessCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_codes (id, name, code, role, valid_until, is_active,
		     log_ip_addresses, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Code, c.Role, c.ValidUntil, c.IsActive,
		pq.Array(c.LogIPAddresses), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access code: %w", err)
	}
	return nil
}

// Update はアクセスコードを更新する。
func (r *PostgresAccessCodeRepo) Update(ctx context.Context, c *model.AccessCode) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE access_codes SET
		     name = $2, code = $3, role = $4, valid_until = $5, is_active = $6, updated_at = $7
		 WHERE id = $1`,
		c.ID, c.Name, c.Code, c.Role, c.ValidUntil, c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update access code: %w", err)
	}
	return nil
}

// Delete は指定IDのアクセスコードを削除する。
func (r *PostgresAccessCodeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete access code: %w", err)
	}
	return nil
}

func scanAccessCode(row rowScanner) (*model.AccessCode, error) {
	c := &model.AccessCode{}
	var validUntil, lastLogin sql.NullTime
	var role string

	err := row.Scan(
		&c.ID, &c.Name, &c.Code, &role, &validUntil, &c.IsActive,
		&lastLogin, pq.Array(&c.LogIPAddresses), &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan access code: %w", err)
	}

	c.Role = model.Role(role)
	if validUntil.Valid {
		c.ValidUntil = &validUntil.Time
	}
	if lastLogin.Valid {
		c.LastLogin = &lastLogin.Time
	}
	return c, nil
}

// compile-time interface check
var _ AccessCodeRepository = (*PostgresAccessCodeRepo)(nil)
