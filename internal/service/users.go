package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type UserService struct {
	Repo   *repo.GormRepo
	Events Publisher
}

type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
}

func (s *UserService) List(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	return s.Repo.ListUsers(ctx, offset, limit)
}

// Update lets a user edit their own profile; admins may edit anyone.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, patch UserPatch) (*models.User, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot edit another user", ErrForbidden)
	}

	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		fields["name"] = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: email is invalid", ErrValidation)
		}
		fields["email"] = email
	}
	if patch.Password != nil {
		if n := len(*patch.Password); n < 6 || n > 128 {
			return nil, fmt.Errorf("%w: password must be 6..128 characters", ErrValidation)
		}
		h, err := hash.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = h
	}

	u, err := s.Repo.UpdateUser(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, mapRepoErr(err, "user")
	}
	return u, nil
}

func (s *UserService) SetRole(ctx context.Context, id uint, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role must be user or admin", ErrValidation)
	}
	u, err := s.Repo.UpdateUser(ctx, id, map[string]any{"role": role})
	if err != nil {
		return nil, mapRepoErr(err, "user")
	}
	publish(ctx, s.Events, mykafka.TopicUsers, u.ID, "user_role_changed", map[string]any{"user_id": u.ID, "role": role})
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrReferenced) {
			return fmt.Errorf("%w: user has orders", ErrConflict)
		}
		return mapRepoErr(err, "user")
	}
	publish(ctx, s.Events, mykafka.TopicUsers, id, "user_deleted", map[string]any{"user_id": id})
	return nil
}
