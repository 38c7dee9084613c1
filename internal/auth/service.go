package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
	"github.com/hitoshi/kakeibo/internal/token"
)

// Service はアクセスコードによるログインとログアウトを提供する。
type Service struct {
	codec       *token.Codec
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceを生成する。
func NewService(
	codec *token.Codec,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
) *Service {
	return &Service{
		codec:       codec,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
	}
}

// Login はアクセスコードを検証し、トークンの発行とセッションの作成を行う。
// 成功時はアカウントのログイン時刻とIP監査情報を更新する。
func (s *Service) Login(ctx context.Context, code, sourceIP string) (string, error) {
	account, err := s.accountRepo.FindByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: account lookup failed: %w", err)
	}
	if account == nil || !account.IsActive {
		return "", model.NewInvalidAccessCodeError()
	}
	if account.ValidUntil != nil && time.Now().After(*account.ValidUntil) {
		return "", model.NewAccessCodeExpiredError()
	}
	if account.Restricted() {
		return "", model.NewAccountRestrictedError()
	}

	signed, err := s.codec.Sign(account.ID, account.Role, account.Name)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}

	session := &model.Session{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Token:     signed,
		CreatedAt: time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("auth: failed to create session: %w", err)
	}

	if err := s.accountRepo.StampLogin(ctx, account.ID, sourceIP, time.Now()); err != nil {
		return "", fmt.Errorf("auth: failed to stamp login: %w", err)
	}

	slog.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return signed, nil
}

// Logout は提示されたトークンのセッションを無効化し、ログアウト時刻を記録する。
// セッションが既に存在しない場合もエラーにはしない（冪等）。
func (s *Service) Logout(ctx context.Context, principal *model.Principal, raw string) error {
	session, err := s.sessionRepo.FindByAccountAndToken(ctx, principal.AccountID, raw)
	if err != nil {
		return fmt.Errorf("auth: session lookup failed: %w", err)
	}
	if session != nil {
		if _, err := s.sessionRepo.Revoke(ctx, session.ID, time.Now()); err != nil {
			return fmt.Errorf("auth: failed to revoke session: %w", err)
		}
	}

	if err := s.accountRepo.StampLogout(ctx, principal.AccountID, time.Now()); err != nil {
		return fmt.Errorf("auth: failed to stamp logout: %w", err)
	}

	slog.Info("logout succeeded", slog.String("account_id", principal.AccountID))
	return nil
}

// GetSession は指定IDのセッションを返す。
func (s *Service) GetSession(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("auth: session lookup failed: %w", err)
	}
	if session == nil {
		return nil, model.NewSessionNotFoundError(id)
	}
	return session, nil
}

// ListActiveSessions は無効化されていないセッションを返す。
func (s *Service) ListActiveSessions(ctx context.Context) ([]*model.Session, error) {
	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to list active sessions: %w", err)
	}
	return sessions, nil
}

// ListRevokedSessions は無効化済みセッションを返す。
func (s *Service) ListRevokedSessions(ctx context.Context) ([]*model.Session, error) {
	sessions, err := s.sessionRepo.ListRevoked(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to list revoked sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession は指定IDのセッションを無効化する。
// 既に無効化済みの場合も成功として扱う（冪等）。
func (s *Service) RevokeSession(ctx context.Context, id string) error {
	found, err := s.sessionRepo.Revoke(ctx, id, time.Now())
	if err != nil {
		return fmt.Errorf("auth: failed to revoke session: %w", err)
	}
	if !found {
		return model.NewSessionNotFoundError(id)
	}

	slog.Info("session revoked", slog.String("session_id", id))
	return nil
}

// RevokeAccountSession はアカウントに属する指定セッションを無効化する。
// アカウントとセッションの対応が一致しない場合は存在しないものとして扱う。
func (s *Service) RevokeAccountSession(ctx context.Context, accountID, id string) error {
	found, err := s.sessionRepo.RevokeByAccountAndID(ctx, accountID, id, time.Now())
	if err != nil {
		return fmt.Errorf("auth: failed to revoke session: %w", err)
	}
	if !found {
		return model.NewSessionNotFoundError(id)
	}

	slog.Info("session revoked",
		slog.String("account_id", accountID),
		slog.String("session_id", id),
	)
	return nil
}
