package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"gorm.io/gorm"
)

type AuthService struct {
	Repo       *repo.GormRepo
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Events     Publisher
	Now        func() time.Time
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	if n := len(password); n < 6 || n > 128 {
		return nil, fmt.Errorf("%w: password must be 6..128 characters", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{Name: name, Email: email, Password: pwHash, Role: models.RoleUser}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUsers, user.ID, "user_registered", map[string]any{
		"user_id": user.ID, "email": user.Email,
	})
	return user, nil
}

// Authenticate checks credentials without issuing tokens.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}
	if !hash.CheckPassword(user.Password, password) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return user, nil
}

func (s *AuthService) IssueAccessToken(user *models.User) (string, error) {
	return tokens.NewAccessToken(s.JWTSecret, user.ID, user.Name, user.Email, user.Role, s.now().Add(s.AccessTTL))
}

func (s *AuthService) newRefresh(userID uint) (string, *models.RefreshToken, error) {
	raw, digest, err := tokens.NewRefreshToken()
	if err != nil {
		return "", nil, err
	}
	return raw, &models.RefreshToken{
		UserID:    userID,
		Token:     digest,
		ExpiresAt: s.now().Add(s.RefreshTTL),
	}, nil
}

func (s *AuthService) IssueRefreshToken(ctx context.Context, userID uint) (string, error) {
	raw, rt, err := s.newRefresh(userID)
	if err != nil {
		return "", err
	}
	if err := s.Repo.SaveRefreshToken(ctx, rt); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	access, err := s.IssueAccessToken(user)
	if err != nil {
		l.Error("login_error", "reason", "cannot sign access token", "error", err)
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		l.Error("login_error", "reason", "cannot store refresh token", "error", err)
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a live refresh token for a new access token and a
// rotated refresh token.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*LoginResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: refresh token required", ErrValidation)
	}
	digest := tokens.Sha256Hex(raw)

	stored, err := s.Repo.GetRefreshToken(ctx, digest)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	now := s.now()
	if stored.RevokedAt != nil {
		return nil, ErrRevoked
	}
	if !now.Before(stored.ExpiresAt) {
		return nil, ErrExpired
	}

	user, err := s.Repo.GetUser(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	access, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	nextRaw, next, err := s.newRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, digest, next, now); err != nil {
		if errors.Is(err, repo.ErrTokenReused) {
			return nil, ErrRevoked
		}
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: nextRaw, User: user}, nil
}

// Logout revokes the token. Unknown or already revoked tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(raw), s.now())
}
