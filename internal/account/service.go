// Package account はアカウントとアクセスコード管理のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// CreateAccountInput はアカウント作成の入力。
type CreateAccountInput struct {
	Name       string
	Code       string
	Role       model.Role
	ValidUntil *time.Time
}

// UpdateAccountInput はアカウント更新の入力。nilのフィールドは変更しない。
type UpdateAccountInput struct {
	Name       *string
	Code       *string
	Role       *model.Role
	ValidUntil *time.Time
	IsActive   *bool
	IsRevoked  *bool
	IsBanned   *bool
}

// Service はアカウント管理のサービス層。
// アカウントとアクセスコードのCRUD、および禁止・無効化フローを提供する。
type Service struct {
	accountRepo repository.AccountRepository
	codeRepo    repository.AccessCodeRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	accountRepo repository.AccountRepository,
	codeRepo repository.AccessCodeRepository,
	sessionRepo repository.SessionRepository,
) *Service {
	return &Service{
		accountRepo: accountRepo,
		codeRepo:    codeRepo,
		sessionRepo: sessionRepo,
	}
}

// ListAccounts は全アカウントを返す。
func (s *Service) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("アカウント一覧の取得に失敗しました: %w", err)
	}
	return accounts, nil
}

// ListBannedAccounts は禁止済みアカウントを返す。
func (s *Service) ListBannedAccounts(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.accountRepo.ListBanned(ctx)
	if err != nil {
		return nil, fmt.Errorf("禁止済みアカウント一覧の取得に失敗しました: %w", err)
	}
	return accounts, nil
}

// GetAccount は指定IDのアカウントを返す。
func (s *Service) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

// CreateAccount はアカウントを作成する。
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*model.Account, error) {
	if input.Name == "" || input.Code == "" {
		return nil, model.NewInvalidRequestError("nameとcodeは必須です。")
	}

	now := time.Now()
	account := &model.Account{
		ID:             uuid.New().String(),
		Name:           input.Name,
		Code:           input.Code,
		Role:           input.Role,
		ValidUntil:     input.ValidUntil,
		IsActive:       true,
		LogIPAddresses: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}

	slog.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return account, nil
}

// UpdateAccount はアカウントの属性を更新する。
// 更新後のフラグは banned ⇒ revoked ⇒ inactive の不変条件に正規化される。
func (s *Service) UpdateAccount(ctx context.Context, id string, input UpdateAccountInput) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}

	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.Code != nil {
		account.Code = *input.Code
	}
	if input.Role != nil {
		account.Role = *input.Role
	}
	if input.ValidUntil != nil {
		account.ValidUntil = input.ValidUntil
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	if input.IsRevoked != nil {
		account.IsRevoked = *input.IsRevoked
	}
	if input.IsBanned != nil {
		account.IsBanned = *input.IsBanned
	}

	normalizeFlags(account)
	account.UpdatedAt = time.Now()

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("アカウントの更新に失敗しました: %w", err)
	}

	return account, nil
}

// DeleteAccount は指定IDのアカウントを削除する。
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return model.NewAccountNotFoundError()
	}

	if err := s.accountRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("アカウントの削除に失敗しました: %w", err)
	}

	return nil
}

// BanAccount はアカウントを禁止し、そのアカウントの全セッションを
// banned+revokedにする。
// アカウント側のフラグは banned ⇒ revoked ⇒ inactive に正規化される。
func (s *Service) BanAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}

	now := time.Now()

	account.IsBanned = true
	normalizeFlags(account)
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("アカウントの更新に失敗しました: %w", err)
	}

	if err := s.sessionRepo.BanByAccount(ctx, id, now); err != nil {
		return nil, fmt.Errorf("セッションの禁止に失敗しました: %w", err)
	}

	slog.Info("account banned",
		slog.String("account_id", id),
	)

	return account, nil
}

// RevokeAccount はアカウントを無効化し、そのアカウントの全セッションを
// 無効化する。禁止とは異なりbannedフラグは立てない。
func (s *Service) RevokeAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}

	now := time.Now()

	account.IsRevoked = true
	normalizeFlags(account)
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("アカウントの更新に失敗しました: %w", err)
	}

	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	for _, session := range sessions {
		if session.AccountID != id {
			continue
		}
		if _, err := s.sessionRepo.Revoke(ctx, session.ID, now); err != nil {
			return nil, fmt.Errorf("セッションの無効化に失敗しました: %w", err)
		}
	}

	slog.Info("account revoked",
		slog.String("account_id", id),
	)

	return account, nil
}

// normalizeFlags はフラグの不変条件を正規化する。
// banned ⇒ revoked、revoked ⇒ inactive。
func normalizeFlags(account *model.Account) {
	if account.IsBanned {
		account.IsRevoked = true
	}
	if account.IsRevoked {
		account.IsActive = false
	}
}

// CreateAccessCodeInput はアクセスコード作成の入力。
type CreateAccessCodeInput struct {
	Name       string
	Code       string
	Role       model.Role
	ValidUntil *time.Time
}

// ListAccessCodes は全アクセスコードを返す。
func (s *Service) ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error) {
	codes, err := s.codeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("アクセスコード一覧の取得に失敗しました: %w", err)
	}
	return codes, nil
}

// GetAccessCode は指定IDのアクセスコードを返す。
func (s *Service) GetAccessCode(ctx context.Context, id string) (*model.AccessCode, error) {
	code, err := s.codeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アクセスコードの取得に失敗しました: %w", err)
	}
	if code == nil {
		return nil, model.NewAccessCodeNotFoundError(id)
	}
	return code, nil
}

// CreateAccessCode はアクセスコードを作成する。
func (s *Service) CreateAccessCode(ctx context.Context, input CreateAccessCodeInput) (*model.AccessCode, error) {
	if input.Name == "" || input.Code == "" {
		return nil, model.NewInvalidRequestError("nameとcodeは必須です。")
	}

	now := time.Now()
	code := &model.AccessCode{
		ID:             uuid.New().String(),
		Name:           input.Name,
		Code:           input.Code,
		Role:           input.Role,
		ValidUntil:     input.ValidUntil,
		IsActive:       true,
		LogIPAddresses: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.codeRepo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("アクセスコードの作成に失敗しました: %w", err)
	}

	return code, nil
}

// UpdateAccessCode はアクセスコードを更新する。
func (s *Service) UpdateAccessCode(ctx context.Context, id string, input CreateAccessCodeInput, isActive *bool) (*model.AccessCode, error) {
	code, err := s.codeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アクセスコードの取得に失敗しました: %w", err)
	}
	if code == nil {
		return nil, model.NewAccessCodeNotFoundError(id)
	}

	if input.Name != "" {
		code.Name = input.Name
	}
	if input.Code != "" {
		code.Code = input.Code
	}
	if input.Role != "" {
		code.Role = input.Role
	}
	if input.ValidUntil != nil {
		code.ValidUntil = input.ValidUntil
	}
	if isActive != nil {
		code.IsActive = *isActive
	}
	code.UpdatedAt = time.Now()

	if err := s.codeRepo.Update(ctx, code); err != nil {
		return nil, fmt.Errorf("アクセスコードの更新に失敗しました: %w", err)
	}

	return code, nil
}

// DeleteAccessCode は指定IDのアクセスコードを削除する。
func (s *Service) DeleteAccessCode(ctx context.Context, id string) error {
	code, err := s.codeRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("アクセスコードの取得に失敗しました: %w", err)
	}
	if code == nil {
		return model.NewAccessCodeNotFoundError(id)
	}

	if err := s.codeRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("アクセスコードの削除に失敗しました: %w", err)
	}

	return nil
}
