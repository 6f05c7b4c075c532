package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
)

func TestRoutes_Basics(t *testing.T) {
	t.Parallel()
	e, _ := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"root", http.MethodGet, "/", http.StatusOK},
		{"live", http.MethodGet, "/health/live", http.StatusOK},
		{"ready", http.MethodGet, "/health/ready", http.StatusOK},
		{"ping", http.MethodGet, "/payments/ping", http.StatusOK},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound},
		{"cart_without_token", http.MethodGet, "/cart", http.StatusUnauthorized},
		{"stats_without_token", http.MethodGet, "/stats/sales", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, "", "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, e, http.MethodGet, "/nope", "", "")
	assert.NotEmpty(t, errorOf(t, rec))
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	e, _ := newServer(t)

	body := `{"name":"Ann","email":"Ann@Example.com","password":"secret1"}`
	rec := do(t, e, http.MethodPost, "/users/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[models.User](t, rec)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, e, http.MethodPost, "/users/register", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/login", `{"email":"ann@example.com","password":"wrong1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/login", `{"email":"ann@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode[transport.TokenPair](t, rec)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	rec = do(t, e, http.MethodGet, "/cart", "", pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[transport.TokenPair](t, rec)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	rec = do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/logout", `{"refreshToken":"`+next.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+next.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/users/login", `{"email":"ann@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["token"])
}

func TestRegister_ValidationDetails(t *testing.T) {
	t.Parallel()
	e, _ := newServer(t)

	rec := do(t, e, http.MethodPost, "/users/register", `{"name":"Bo","email":"bo@example.com","password":"123"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[transport.ErrorResponse](t, rec)
	assert.NotEmpty(t, resp.Error)
	assert.Contains(t, resp.Details, "password must be at least 6")

	rec = do(t, e, http.MethodPost, "/users/register", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_AdminOnlyAndCatalog(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	admin := testutil.SeedUser(t, db, "admin@example.com", models.RoleAdmin)
	user := testutil.SeedUser(t, db, "user@example.com", models.RoleUser)
	cat := testutil.SeedCategory(t, db, "Books")

	body := jsonf(`{"name":"Go book","price":"19.90","stock":4,"category_id":%d}`, cat.ID)
	assert.Equal(t, http.StatusUnauthorized, do(t, e, http.MethodPost, "/products", body, "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodPost, "/products", body, bearer(t, user)).Code)

	rec := do(t, e, http.MethodPost, "/products", body, bearer(t, admin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[models.Product](t, rec)
	assert.Equal(t, "19.9", p.Price.String())

	rec = do(t, e, http.MethodPost, "/products", `{"name":"Orphan","price":"1.00","category_id":999}`, bearer(t, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/products?q=go&sort=price_desc&limit=500", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[struct {
		Items []map[string]any   `json:"items"`
		Meta  transport.PageMeta `json:"meta"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Books", list.Items[0]["category_name"])
	assert.Equal(t, 50, list.Meta.Limit)
	assert.Equal(t, int64(1), list.Meta.Total)
	assert.Equal(t, "price_desc", list.Meta.Sort)

	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/products?sort=random", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/products?min_price=abc", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodGet, "/products/999", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/products/abc", "", "").Code)

	rec = do(t, e, http.MethodGet, "/products/search?q=book", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), "", bearer(t, admin))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), "", bearer(t, admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), "", bearer(t, admin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartCheckout(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	user := testutil.SeedUser(t, db, "cart@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, db, "Mug", "9.99", 3, nil)
	tok := bearer(t, user)

	rec := do(t, e, http.MethodPost, "/cart/add", jsonf(`{"product_id":%d,"quantity":2}`, p.ID), tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/cart/add", jsonf(`{"product_id":%d,"quantity":2}`, p.ID), tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/cart/add", `{"product_id":999}`, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/cart", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.CartView](t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "19.98", view.Total.String())

	rec = do(t, e, http.MethodPut, "/cart/item/999", `{"quantity":1}`, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPost, "/cart/checkout", "", tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[struct {
		Order models.Order `json:"order"`
	}](t, rec)
	assert.Equal(t, models.OrderStatusPending, out.Order.Status)
	assert.Equal(t, "19.98", out.Order.Total.String())
	assert.Equal(t, 1, testutil.Stock(t, db, p.ID))

	rec = do(t, e, http.MethodPost, "/cart/checkout", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders_StatusRules(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	owner := testutil.SeedUser(t, db, "owner@example.com", models.RoleUser)
	other := testutil.SeedUser(t, db, "other@example.com", models.RoleUser)
	admin := testutil.SeedUser(t, db, "boss@example.com", models.RoleAdmin)
	p := testutil.SeedProduct(t, db, "Lamp", "5.00", 10, nil)

	rec := do(t, e, http.MethodPost, "/orders", jsonf(`{"items":[{"product_id":%d,"quantity":1},{"product_id":%d,"quantity":2}]}`, p.ID, p.ID), bearer(t, owner))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[models.Order](t, rec)
	assert.Equal(t, "15", order.Total.String())
	assert.Equal(t, 7, testutil.Stock(t, db, p.ID))

	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodPost, "/orders", `{"items":[]}`, bearer(t, owner)).Code)

	path := fmt.Sprintf("/orders/%d", order.ID)
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodGet, path, "", bearer(t, other)).Code)
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, path, "", bearer(t, admin)).Code)

	tests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"other_user", bearer(t, other), `{"status":"cancelled"}`, http.StatusForbidden},
		{"owner_ship", bearer(t, owner), `{"status":"shipped"}`, http.StatusBadRequest},
		{"unknown_status", bearer(t, owner), `{"status":"lost"}`, http.StatusBadRequest},
		{"owner_cancel", bearer(t, owner), `{"status":"cancelled"}`, http.StatusOK},
		{"owner_cancel_again", bearer(t, owner), `{"status":"cancelled"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, e, http.MethodPut, path, tt.body, tt.token)
		assert.Equal(t, tt.want, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}

	rec = do(t, e, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID), `{"status":"shipped"}`, bearer(t, admin))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/orders/all/admin?status=shipped", "", bearer(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]map[string]any](t, rec)
	require.Len(t, all, 1)
	assert.Equal(t, "owner@example.com", all[0]["user_email"])

	rec = do(t, e, http.MethodDelete, path, "", bearer(t, owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, e, http.MethodDelete, path, "", bearer(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, testutil.Stock(t, db, p.ID))
}

func signedWebhook(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func intentSucceeded(intentID, metadata string, amount int64) string {
	return fmt.Sprintf(`{"id":"evt_%s","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":%q,"object":"payment_intent","amount":%d,"currency":"usd","metadata":%s}}}`,
		intentID, intentID, amount, metadata)
}

func postWebhook(t *testing.T, e *echo.Echo, header string, body []byte) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestWebhook(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	user := testutil.SeedUser(t, db, "payer@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, db, "Chair", "12.50", 5, nil)
	tok := bearer(t, user)

	rec := do(t, e, http.MethodPost, "/cart/add", jsonf(`{"product_id":%d,"quantity":2}`, p.ID), tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/payments/quote", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2500), decode[service.Quote](t, rec).Amount)

	countOrders := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
		return n
	}

	_, body := signedWebhook(t, intentSucceeded("pi_bad", fmt.Sprintf(`{"user_id":"%d"}`, user.ID), 2500))
	assert.Equal(t, http.StatusBadRequest, postWebhook(t, e, "t=1,v1=deadbeef", body))
	assert.Equal(t, int64(0), countOrders())

	header, body := signedWebhook(t, intentSucceeded("pi_nouser", `{}`, 2500))
	assert.Equal(t, http.StatusOK, postWebhook(t, e, header, body))
	assert.Equal(t, int64(0), countOrders())

	header, body = signedWebhook(t, intentSucceeded("pi_ok", fmt.Sprintf(`{"user_id":"%d"}`, user.ID), 2500))
	assert.Equal(t, http.StatusOK, postWebhook(t, e, header, body))
	assert.Equal(t, http.StatusOK, postWebhook(t, e, header, body))
	assert.Equal(t, int64(1), countOrders())

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	require.NotNil(t, order.StripePaymentIntentID)
	assert.Equal(t, "pi_ok", *order.StripePaymentIntentID)
	assert.Equal(t, 3, testutil.Stock(t, db, p.ID))

	rec = do(t, e, http.MethodGet, "/cart", "", tok)
	assert.Empty(t, decode[service.CartView](t, rec).Items)
}

func TestStatsAndAdmin(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	admin := testutil.SeedUser(t, db, "stats@example.com", models.RoleAdmin)
	user := testutil.SeedUser(t, db, "buyer@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, db, "Pen", "2.50", 100, nil)
	tok := bearer(t, admin)

	rec := do(t, e, http.MethodPost, "/orders", jsonf(`{"items":[{"product_id":%d,"quantity":4}]}`, p.ID), bearer(t, user))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodGet, "/stats/sales", "", bearer(t, user)).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/stats/sales?from=yesterday", "", tok).Code)

	rec = do(t, e, http.MethodGet, "/stats/sales", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, sales["orders_count"])
	assert.Equal(t, "10", sales["total_revenue"])

	rec = do(t, e, http.MethodGet, "/stats/top-products?limit=3", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	top := decode[[]map[string]any](t, rec)
	require.Len(t, top, 1)
	assert.EqualValues(t, 4, top[0]["total_units"])

	rec = do(t, e, http.MethodGet, "/admin/users?pageSize=1", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[struct {
		Items []models.User      `json:"items"`
		Meta  transport.PageMeta `json:"meta"`
	}](t, rec)
	assert.Len(t, users.Items, 1)
	assert.Equal(t, int64(2), users.Meta.Total)
	assert.Equal(t, int64(2), users.Meta.TotalPages)

	rec = do(t, e, http.MethodPatch, fmt.Sprintf("/admin/users/%d/role", user.ID), `{"role":"root"}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, e, http.MethodPatch, fmt.Sprintf("/admin/users/%d/role", user.ID), `{"role":"admin"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleAdmin, decode[models.User](t, rec).Role)

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/users/%d", user.ID), "", tok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodPut, fmt.Sprintf("/users/%d", admin.ID), `{"name":"Boss"}`, bearer(t, user))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecommendations(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	user := testutil.SeedUser(t, db, "recs@example.com", models.RoleUser)
	cat := testutil.SeedCategory(t, db, "Garden")
	base := testutil.SeedProduct(t, db, "Rake", "8.00", 5, &cat.ID)
	testutil.SeedProduct(t, db, "Hoe", "7.00", 5, &cat.ID)

	rec := do(t, e, http.MethodGet, "/recommendations/by-user", "", bearer(t, user))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.BasedOnNewest, decode[map[string]any](t, rec)["basedOn"])

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/recommendations/by-product/%d", base.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[service.ProductRecommendations](t, rec)
	require.Len(t, recs.Items, 1)
	assert.Equal(t, "Hoe", recs.Items[0].Name)

	assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodGet, "/recommendations/by-product/999", "", "").Code)
}

func TestCartClearAndRemove(t *testing.T) {
	t.Parallel()
	e, db := newServer(t)
	user := testutil.SeedUser(t, db, "clear@example.com", models.RoleUser)
	a := testutil.SeedProduct(t, db, "A", "1.00", 5, nil)
	b := testutil.SeedProduct(t, db, "B", "2.00", 5, nil)
	tok := bearer(t, user)

	for _, id := range []uint{a.ID, b.ID} {
		rec := do(t, e, http.MethodPost, "/cart/add", jsonf(`{"product_id":%d}`, id), tok)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, e, http.MethodPut, fmt.Sprintf("/cart/item/%d", b.ID), `{"quantity":3}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, e, http.MethodGet, "/cart", "", tok)
	assert.Equal(t, "7", decode[service.CartView](t, rec).Total.String())

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/cart/item/%d", a.ID), "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/cart/item/%d", a.ID), "", tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodDelete, "/cart", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, "/cart", "", tok)
	view := decode[service.CartView](t, rec)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())
}
