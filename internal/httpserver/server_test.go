package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payments"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/Skotchmaster/storefront/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	jwtSecret     = []byte("handler-test-secret")
	webhookSecret = "whsec_handler_test"
)

func newServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	r := &repo.GormRepo{DB: db}

	catalog := &service.CatalogService{Repo: r}
	e := echo.New()
	e.Validator = validate.New()
	e.HTTPErrorHandler = ErrorHandler

	Register(e, &Deps{
		DB:         db,
		BearerAuth: authmw.NewBearerAuth(jwtSecret),
		AuthHandler: &AuthHTTP{Auth: &service.AuthService{
			Repo: r, JWTSecret: jwtSecret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour,
		}},
		UserHandler:    &UserHTTP{Users: &service.UserService{Repo: r}},
		CatalogHandler: &CatalogHTTP{Catalog: catalog},
		CartHandler:    &CartHTTP{Cart: &service.CartService{Repo: r, OnStockChange: catalog.Invalidate}},
		OrderHandler:   &OrderHTTP{Orders: &service.OrderService{Repo: r, OnStockChange: catalog.Invalidate}},
		PaymentHandler: &PaymentHTTP{Payments: &service.PaymentService{
			Repo:          r,
			Gateway:       payments.NewStripeGateway("sk_test", webhookSecret, nil),
			Currency:      "usd",
			OnStockChange: catalog.Invalidate,
		}},
		StatsHandler:          &StatsHTTP{Reports: &service.ReportService{Repo: r}},
		RecommendationHandler: &RecommendationHTTP{Recs: &service.RecommendationService{Repo: r}},
	})
	return e, db
}

func bearer(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(jwtSecret, u.ID, u.Name, u.Email, u.Role, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}

func jsonf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
