package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Auth *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bindAndValidate(c, l, "register_error", &req); err != nil {
		return err
	}

	user, err := h.Auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("user_registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, l, "login_error", &req); err != nil {
		return err
	}

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_ok", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// LegacyLogin answers /users/login with a single access token.
func (h *AuthHTTP) LegacyLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.legacy_login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, l, "login_error", &req); err != nil {
		return err
	}

	user, err := h.Auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_error", err)
	}
	token, err := h.Auth.IssueAccessToken(user)
	if err != nil {
		return fail(l, "login_error", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	var req transport.RefreshRequest
	if err := bindAndValidate(c, l, "refresh_error", &req); err != nil {
		return err
	}

	res, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(l, "refresh_error", err)
	}

	return c.JSON(http.StatusOK, transport.TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	var req transport.LogoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Auth.Logout(ctx, req.RefreshToken); err != nil {
		return fail(l, "logout_error", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
