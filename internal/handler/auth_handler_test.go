package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn  func(ctx context.Context, code, sourceIP string) (string, error)
	logoutFn func(ctx context.Context, principal *model.Principal, raw string) error
}

func (m *mockAuthService) Login(ctx context.Context, code, sourceIP string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, code, sourceIP)
	}
	return "", nil
}

func (m *mockAuthService) Logout(ctx context.Context, principal *model.Principal, raw string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, principal, raw)
	}
	return nil
}

func testPrincipal() *model.Principal {
	return &model.Principal{
		AccountID: "account-1",
		Name:      "taro",
		Role:      model.RoleFamily,
	}
}

func decodeErrorBody(t *testing.T, resp *http.Response) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- テスト ---

func TestAuthHandler_Login_ReturnsToken(t *testing.T) {
	var gotCode, gotIP string
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, code, sourceIP string) (string, error) {
			gotCode = code
			gotIP = sourceIP
			return "issued-token", nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"code":"family-code"}`))
	req.RemoteAddr = "203.0.113.7:51000"
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Token != "issued-token" {
		t.Errorf("token = %q, want %q", body.Token, "issued-token")
	}
	if gotCode != "family-code" {
		t.Errorf("code = %q, want %q", gotCode, "family-code")
	}
	if gotIP != "203.0.113.7" {
		t.Errorf("sourceIP = %q, want %q", gotIP, "203.0.113.7")
	}
}

func TestAuthHandler_Login_MissingCode_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_InvalidBody_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_InvalidAccessCode_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, code, sourceIP string) (string, error) {
			return "", model.NewInvalidAccessCodeError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"code":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	body := decodeErrorBody(t, resp)
	if body.Code != model.ErrCodeInvalidAccessCode {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeInvalidAccessCode)
	}
}

func TestAuthHandler_Logout_RevokesSession(t *testing.T) {
	var gotPrincipal *model.Principal
	var gotRaw string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, principal *model.Principal, raw string) error {
			gotPrincipal = principal
			gotRaw = raw
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer the-raw-token")
	req = req.WithContext(middleware.ContextWithPrincipal(req.Context(), testPrincipal()))
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if gotPrincipal == nil || gotPrincipal.AccountID != "account-1" {
		t.Errorf("principal = %+v, want account-1", gotPrincipal)
	}
	if gotRaw != "the-raw-token" {
		t.Errorf("raw token = %q, want %q", gotRaw, "the-raw-token")
	}
}

func TestAuthHandler_Logout_Anonymous_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
