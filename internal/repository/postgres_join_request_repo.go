package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresJoinRequestRepo はPostgreSQLを使用した参加リクエストリポジトリ。
type PostgresJoinRequestRepo struct {
	db *sql.DB
}

// NewPostgresJoinRequestRepo はPostgresJoinRequestRepoを生成する。
func NewPostgresJoinRequestRepo(db *sql.DB) *PostgresJoinRequestRepo {
	return &PostgresJoinRequestRepo{db: db}
}

// Create は参加リクエストを作成する。
func (r *PostgresJoinRequestRepo) Create(ctx context.Context, req *model.JoinRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO join_requests (id, name, requested_role, status, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.Name, req.RequestedRole, req.Status, req.IPAddress, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

// FindByID は指定IDの参加リクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresJoinRequestRepo) FindByID(ctx context.Context, id string) (*model.JoinRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, requested_role, status, ip_address, created_at
		 FROM join_requests WHERE id = $1`,
		id,
	)
	return scanJoinRequest(row)
}

// List は全参加リクエストを作成日時の降順で返す。
func (r *PostgresJoinRequestRepo) List(ctx context.Context) ([]*model.JoinRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, requested_role, status, ip_address, created_at
		 FROM join_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.JoinRequest
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate join requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus はリクエストの状態を更新して返す。見つからない場合はnilを返す。
func (r *PostgresJoinRequestRepo) UpdateStatus(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE join_requests SET status = $2 WHERE id = $1
		 RETURNING id, name, requested_role, status, ip_address, created_at`,
		id, status,
	)
	return scanJoinRequest(row)
}

func scanJoinRequest(row rowScanner) (*model.JoinRequest, error) {
	req := &model.JoinRequest{}
	var role, status string
	var ip sql.NullString

	err := row.Scan(&req.ID, &req.Name, &role, &status, &ip, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan join request: %w", err)
	}

	req.RequestedRole = model.Role(role)
	req.Status = model.RequestStatus(status)
	if ip.Valid {
		req.IPAddress = ip.String
	}
	return req, nil
}

// compile-time interface check
var _ JoinRequestRepository = (*PostgresJoinRequestRepo)(nil)
