// Package request は参加リクエスト管理のドメインロジックを提供する。
package request

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// Service は参加リクエストのサービス層。
// 認証不要の作成、管理者向けの一覧と状態遷移を提供する。
type Service struct {
	requestRepo repository.JoinRequestRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(requestRepo repository.JoinRequestRepository) *Service {
	return &Service{requestRepo: requestRepo}
}

// CreateRequest は参加リクエストを作成する。
// 認証不要で呼び出せるため、リクエスト元のIPアドレスを記録する。
// 要求可能なロールはviewerとfamilyのみ。
func (s *Service) CreateRequest(ctx context.Context, name string, requestedRole model.Role, sourceIP string) (*model.JoinRequest, error) {
	if name == "" {
		return nil, model.NewInvalidRequestError("nameは必須です。")
	}
	if requestedRole != model.RoleViewer && requestedRole != model.RoleFamily {
		return nil, model.NewInvalidRoleError(string(requestedRole))
	}

	req := &model.JoinRequest{
		ID:            uuid.New().String(),
		Name:          name,
		RequestedRole: requestedRole,
		Status:        model.RequestStatusPending,
		IPAddress:     sourceIP,
		CreatedAt:     time.Now(),
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("参加リクエストの作成に失敗しました: %w", err)
	}

	slog.Info("join request created",
		slog.String("request_id", req.ID),
		slog.String("requested_role", string(req.RequestedRole)),
		slog.String("source_ip", sourceIP),
	)

	return req, nil
}

// ListRequests は全参加リクエストを返す。
func (s *Service) ListRequests(ctx context.Context) ([]*model.JoinRequest, error) {
	requests, err := s.requestRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("参加リクエスト一覧の取得に失敗しました: %w", err)
	}
	return requests, nil
}

// UpdateStatus は参加リクエストの状態を遷移させる。
// 許可される遷移はpendingからapprovedまたはrejectedのみ。
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error) {
	if status != model.RequestStatusApproved && status != model.RequestStatusRejected {
		return nil, model.NewInvalidStatusError(string(status))
	}

	current, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("参加リクエストの取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewRequestNotFoundError(id)
	}
	if current.Status != model.RequestStatusPending {
		return nil, model.NewInvalidStatusError(string(status))
	}

	updated, err := s.requestRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("参加リクエストの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewRequestNotFoundError(id)
	}

	return updated, nil
}
