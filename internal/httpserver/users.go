package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

const (
	adminUsersPageSize    = 20
	adminUsersMaxPageSize = 100
)

type UserHTTP struct {
	Users *service.UserService
}

// List serves both GET /users and GET /admin/users.
func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("pageSize"), adminUsersPageSize)
	offset, limit := util.Calculate(page, size, adminUsersPageSize, adminUsersMaxPageSize)
	if page < 1 {
		page = 1
	}

	total, users, err := h.Users.List(ctx, offset, limit)
	if err != nil {
		return fail(l, "list_users_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": users,
		"meta": transport.PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
		},
	})
}

func (h *UserHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update")

	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, l, "update_user_error", "id")
	if err != nil {
		return err
	}

	var req transport.UpdateUserRequest
	if err := bindAndValidate(c, l, "update_user_error", &req); err != nil {
		return err
	}

	user, err := h.Users.Update(ctx, who, id, service.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return fail(l, "update_user_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete")

	id, err := paramID(c, l, "delete_user_error", "id")
	if err != nil {
		return err
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return fail(l, "delete_user_error", err)
	}

	l.Info("user_deleted", "user_id", id)
	return c.JSON(http.StatusOK, map[string]any{"message": "user deleted", "id": id})
}

func (h *UserHTTP) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_role")

	id, err := paramID(c, l, "set_role_error", "id")
	if err != nil {
		return err
	}
	var req transport.SetRoleRequest
	if err := bindAndValidate(c, l, "set_role_error", &req); err != nil {
		return err
	}

	user, err := h.Users.SetRole(ctx, id, req.Role)
	if err != nil {
		return fail(l, "set_role_error", err)
	}

	l.Info("role_changed", "user_id", id, "role", user.Role)
	return c.JSON(http.StatusOK, user)
}
