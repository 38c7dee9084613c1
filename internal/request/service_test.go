package request

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/kakeibo/internal/model"
)

type mockJoinRequestRepo struct {
	createFn       func(ctx context.Context, req *model.JoinRequest) error
	findByIDFn     func(ctx context.Context, id string) (*model.JoinRequest, error)
	listFn         func(ctx context.Context) ([]*model.JoinRequest, error)
	updateStatusFn func(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error)
}

func (m *mockJoinRequestRepo) Create(ctx context.Context, req *model.JoinRequest) error {
	return m.createFn(ctx, req)
}
func (m *mockJoinRequestRepo) FindByID(ctx context.Context, id string) (*model.JoinRequest, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockJoinRequestRepo) List(ctx context.Context) ([]*model.JoinRequest, error) {
	return m.listFn(ctx)
}
func (m *mockJoinRequestRepo) UpdateStatus(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error) {
	return m.updateStatusFn(ctx, id, status)
}

// TestService_CreateRequest は参加リクエスト作成時の初期状態とIP記録を検証する。
func TestService_CreateRequest(t *testing.T) {
	var created *model.JoinRequest
	repo := &mockJoinRequestRepo{
		createFn: func(ctx context.Context, req *model.JoinRequest) error {
			created = req
			return nil
		},
	}

	svc := NewService(repo)

	req, err := svc.CreateRequest(context.Background(), "hanako", model.RoleViewer, "203.0.113.9")
	if err != nil {
		t.Fatalf("CreateRequest returned error: %v", err)
	}
	if req.Status != model.RequestStatusPending {
		t.Errorf("status = %q, want %q", req.Status, model.RequestStatusPending)
	}
	if req.IPAddress != "203.0.113.9" {
		t.Errorf("IPAddress = %q, want %q", req.IPAddress, "203.0.113.9")
	}
	if created == nil {
		t.Fatal("expected repository Create to be called")
	}
}

// TestService_CreateRequest_Validation は名前とロールの検証を確認する。
func TestService_CreateRequest_Validation(t *testing.T) {
	svc := NewService(&mockJoinRequestRepo{})

	tests := []struct {
		name     string
		reqName  string
		role     model.Role
		wantCode string
	}{
		{name: "名前が空", reqName: "", role: model.RoleViewer, wantCode: model.ErrCodeInvalidRequest},
		{name: "adminは要求できない", reqName: "hanako", role: model.RoleAdmin, wantCode: model.ErrCodeInvalidRole},
		{name: "未知のロール", reqName: "hanako", role: model.Role("owner"), wantCode: model.ErrCodeInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRequest(context.Background(), tt.reqName, tt.role, "203.0.113.9")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

// TestService_UpdateStatus_Approves はpendingからapprovedへの遷移を検証する。
func TestService_UpdateStatus_Approves(t *testing.T) {
	repo := &mockJoinRequestRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.JoinRequest, error) {
			return &model.JoinRequest{ID: id, Status: model.RequestStatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.RequestStatus) (*model.JoinRequest, error) {
			return &model.JoinRequest{ID: id, Status: status}, nil
		},
	}

	svc := NewService(repo)

	updated, err := svc.UpdateStatus(context.Background(), "request-1", model.RequestStatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if updated.Status != model.RequestStatusApproved {
		t.Errorf("status = %q, want %q", updated.Status, model.RequestStatusApproved)
	}
}

// TestService_UpdateStatus_RejectsInvalidTransitions は不正な状態遷移の拒否を検証する。
func TestService_UpdateStatus_RejectsInvalidTransitions(t *testing.T) {
	repo := &mockJoinRequestRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.JoinRequest, error) {
			return &model.JoinRequest{ID: id, Status: model.RequestStatusApproved}, nil
		},
	}

	svc := NewService(repo)

	// pendingへの差し戻しは許可しない
	_, err := svc.UpdateStatus(context.Background(), "request-1", model.RequestStatusPending)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidStatus {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidStatus)
	}

	// 処理済みリクエストの再遷移は許可しない
	_, err = svc.UpdateStatus(context.Background(), "request-1", model.RequestStatusRejected)
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidStatus {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidStatus)
	}
}

// TestService_UpdateStatus_NotFound は存在しないリクエストの遷移がエラーになることを検証する。
func TestService_UpdateStatus_NotFound(t *testing.T) {
	repo := &mockJoinRequestRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.JoinRequest, error) {
			return nil, nil
		},
	}

	svc := NewService(repo)

	_, err := svc.UpdateStatus(context.Background(), "no-such-request", model.RequestStatusApproved)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeRequestNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeRequestNotFound)
	}
}
