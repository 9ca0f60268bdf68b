package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/security/auth"
)

// AuthService authenticates users against the user store and issues JWTs.
type AuthService struct {
	users        domain.UserRepository
	tokenManager *auth.TokenManager
	logger       *slog.Logger
	tokenTTL     time.Duration
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	OrgID     string
	Role      domain.Role
}

// NewAuthService creates a new auth service
func NewAuthService(users domain.UserRepository, tokenManager *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:        users,
		tokenManager: tokenManager,
		logger:       logger,
		tokenTTL:     24 * time.Hour,
	}
}

// Login verifies credentials and returns a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	token, err := s.tokenManager.GenerateToken(user.OrgID, user.ID, user.Email, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("org_id", user.OrgID),
		slog.String("role", string(user.Role)),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
		UserID:    user.ID,
		OrgID:     user.OrgID,
		Role:      user.Role,
	}, nil
}

// ChangePassword verifies the old password and stores a new bcrypt hash
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("wrong password")
	}

	if len(newPassword) < 8 {
		return fmt.Errorf("new password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}
