package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-jwt-secret")

func token(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(secret, 7, "Ann", "ann@example.com", role, exp)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return rec, c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he.Code
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	m := NewBearerAuth(secret)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "malformed header", header: "Token abc", status: http.StatusUnauthorized},
		{name: "bad signature", header: "Bearer abc.def.ghi", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + token(t, RoleUser, time.Now().Add(-time.Minute)), status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := run(t, m.RequireAuth, tt.header)
			require.Error(t, err)
			assert.Equal(t, tt.status, statusOf(t, err))
		})
	}
}

func TestRequireAuth_SetsIdentity(t *testing.T) {
	t.Parallel()

	m := NewBearerAuth(secret)
	rec, c, err := run(t, m.RequireAuth, "Bearer "+token(t, RoleUser, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), c.Get(CtxUserID))
	assert.Equal(t, RoleUser, c.Get(CtxRole))
	assert.Equal(t, "ann@example.com", c.Get(CtxEmail))
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	m := NewBearerAuth(secret)

	_, _, err := run(t, m.RequireAdmin, "Bearer "+token(t, RoleUser, time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	rec, _, err := run(t, m.RequireAdmin, "Bearer "+token(t, RoleAdmin, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
