package service

import (
	"context"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/security/auth"
)

func newAuthService(t *testing.T) (*AuthService, *fakeUserStore, *auth.TokenManager) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	users := &fakeUserStore{users: map[string]*domain.User{
		"user-1": {
			ID:           "user-1",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
			OrgID:        "org-1",
			IsActive:     true,
		},
	}}

	tm := auth.NewTokenManager("test-secret", "")
	return NewAuthService(users, tm, slog.New(slog.DiscardHandler)), users, tm
}

func TestLogin(t *testing.T) {
	svc, _, tm := newAuthService(t)

	result, err := svc.Login(context.Background(), "admin@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.OrgID != "org-1" || result.Role != domain.RoleAdmin {
		t.Errorf("unexpected login result: %+v", result)
	}

	claims, err := tm.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.OrgID != "org-1" || claims.Role != string(domain.RoleAdmin) {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)

	if _, err := svc.Login(context.Background(), "admin@example.com", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthService(t)

	if _, err := svc.Login(context.Background(), "nobody@example.com", "correct-horse"); err == nil {
		t.Fatal("expected error for unknown email")
	}
}

func TestChangePassword(t *testing.T) {
	svc, users, _ := newAuthService(t)

	if err := svc.ChangePassword(context.Background(), "user-1", "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users.users["user-1"].PasswordHash), []byte("new-password-1")); err != nil {
		t.Errorf("stored hash does not match new password: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), "user-1", "correct-horse", "whatever9"); err == nil {
		t.Error("expected error when old password no longer matches")
	}
	if err := svc.ChangePassword(context.Background(), "user-1", "new-password-1", "short"); err == nil {
		t.Error("expected error for too-short new password")
	}
}
