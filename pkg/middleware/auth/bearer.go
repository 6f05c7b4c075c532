package middleware

import (
	"net/http"
	"strings"

	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxName   = "name"
	CtxEmail  = "email"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

type BearerAuth struct {
	JWTSecret []byte
	jwtMW     echo.MiddlewareFunc
}

func NewBearerAuth(secret []byte) *BearerAuth {
	m := &BearerAuth{JWTSecret: secret}
	m.jwtMW = echojwt.WithConfig(echojwt.Config{
		SigningKey:    secret,
		SigningMethod: echojwt.AlgorithmHS256,
		TokenLookup:   "header:Authorization:Bearer ",
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(tokens.AccessClaims) },
		SuccessHandler: func(c echo.Context) {
			tok, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := tok.Claims.(*tokens.AccessClaims); ok {
				setUserContext(c, claims)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token").SetInternal(err)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(err)
		},
	})
	return m
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.jwtMW(next)
}

func (m *BearerAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.jwtMW(func(c echo.Context) error {
		if role, _ := c.Get(CtxRole).(string); role != RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	})
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxName, claims.Name)
	c.Set(CtxEmail, claims.Email)
}
