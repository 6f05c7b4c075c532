package httpserver

import (
	"net/http"

	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type Deps struct {
	DB         *gorm.DB
	BearerAuth *authmw.BearerAuth

	AuthHandler           *AuthHTTP
	UserHandler           *UserHTTP
	CatalogHandler        *CatalogHTTP
	CartHandler           *CartHTTP
	OrderHandler          *OrderHTTP
	PaymentHandler        *PaymentHTTP
	StatsHandler          *StatsHTTP
	RecommendationHandler *RecommendationHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := pkgdb.Ping(c.Request().Context(), d.DB); err != nil {
			logging.FromContext(c.Request().Context()).Error("ready_check_failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "storefront api"})
	})

	authed := d.BearerAuth.RequireAuth
	admin := d.BearerAuth.RequireAdmin

	a := e.Group("/auth")
	a.POST("/login", d.AuthHandler.Login)
	a.POST("/refresh", d.AuthHandler.Refresh)
	a.POST("/logout", d.AuthHandler.Logout)

	users := e.Group("/users")
	users.POST("/register", d.AuthHandler.Register)
	users.POST("/login", d.AuthHandler.LegacyLogin)
	users.GET("", d.UserHandler.List, admin)
	users.PUT("/:id", d.UserHandler.Update, authed)
	users.DELETE("/:id", d.UserHandler.Delete, admin)

	cats := e.Group("/categories")
	cats.GET("", d.CatalogHandler.ListCategories)
	cats.POST("", d.CatalogHandler.CreateCategory, admin)
	cats.DELETE("/:id", d.CatalogHandler.DeleteCategory, admin)

	products := e.Group("/products")
	products.GET("", d.CatalogHandler.ListProducts)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.POST("", d.CatalogHandler.CreateProduct, admin)
	products.PUT("/:id", d.CatalogHandler.UpdateProduct, admin)
	products.DELETE("/:id", d.CatalogHandler.DeleteProduct, admin)

	cart := e.Group("/cart", authed)
	cart.GET("", d.CartHandler.View)
	cart.DELETE("", d.CartHandler.Clear)
	cart.POST("/add", d.CartHandler.Add)
	cart.PUT("/item/:productId", d.CartHandler.SetQuantity)
	cart.DELETE("/item/:productId", d.CartHandler.Remove)
	cart.POST("/checkout", d.CartHandler.Checkout)

	orders := e.Group("/orders")
	orders.POST("", d.OrderHandler.Create, authed)
	orders.GET("", d.OrderHandler.ListMine, authed)
	orders.GET("/all/admin", d.OrderHandler.ListAll, admin)
	orders.GET("/:id", d.OrderHandler.Get, authed)
	orders.PUT("/:id", d.OrderHandler.UpdateStatus, authed)
	orders.DELETE("/:id", d.OrderHandler.Delete, authed)

	pay := e.Group("/payments")
	pay.GET("/ping", d.PaymentHandler.Ping)
	pay.GET("/quote", d.PaymentHandler.Quote, authed)
	pay.POST("/create-intent", d.PaymentHandler.CreateIntent, authed)
	pay.POST("/webhook", d.PaymentHandler.Webhook)

	adm := e.Group("/admin", admin)
	adm.GET("/users", d.UserHandler.List)
	adm.PATCH("/users/:id/role", d.UserHandler.SetRole)
	adm.GET("/orders", d.OrderHandler.ListAll)
	adm.PUT("/orders/:id/status", d.OrderHandler.UpdateStatus)

	stats := e.Group("/stats", admin)
	stats.GET("/sales", d.StatsHandler.Sales)
	stats.GET("/top-products", d.StatsHandler.TopProducts)

	recs := e.Group("/recommendations")
	recs.GET("/by-user", d.RecommendationHandler.ByUser, authed)
	recs.GET("/by-product/:id", d.RecommendationHandler.ByProduct)
}
