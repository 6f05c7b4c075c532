package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payments"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/pkg/validate"
)

type eventSink interface {
	service.Publisher
	Close() error
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx := logging.IntoContext(context.Background(), logger)

	db, err := pkgdb.Open(ctx, cfg.DB.URL, cfg.DB.Driver)
	if err != nil {
		logger.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	if err := config.Migrate(db); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	var events eventSink = mykafka.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		events = mykafka.NewProducer(cfg.Kafka.Brokers)
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var index service.SearchIndex
	if cfg.Elastic.URL != "" {
		if client, err := es.NewClient(cfg.Elastic, nil); err != nil {
			logger.Warn("elasticsearch_disabled", "error", err)
		} else {
			pi := es.NewProductIndex(client, cfg.Elastic.Index)
			if err := pi.EnsureIndex(ctx); err != nil {
				logger.Warn("elasticsearch_disabled", "error", err)
			} else {
				index = pi
			}
		}
	}

	var (
		rdb          *redis.Client
		productCache *cache.Cache
	)
	if cfg.Redis.Addr != "" {
		rdb = cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		productCache = cache.New(rdb, cache.ProductTTL)
		if err := productCache.Ping(ctx); err != nil {
			logger.Warn("redis_unreachable", "addr", cfg.Redis.Addr, "error", err)
		}
	}

	r := &repo.GormRepo{DB: db}
	catalog := &service.CatalogService{Repo: r, Cache: productCache, Index: index, Events: events}
	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil)
	jwtSecret := []byte(cfg.JWT.Secret)

	deps := httpserver.Deps{
		DB:         db,
		BearerAuth: authmw.NewBearerAuth(jwtSecret),
		AuthHandler: &httpserver.AuthHTTP{Auth: &service.AuthService{
			Repo:       r,
			JWTSecret:  jwtSecret,
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL(),
			Events:     events,
		}},
		UserHandler:    &httpserver.UserHTTP{Users: &service.UserService{Repo: r, Events: events}},
		CatalogHandler: &httpserver.CatalogHTTP{Catalog: catalog},
		CartHandler: &httpserver.CartHTTP{Cart: &service.CartService{
			Repo: r, Events: events, OnStockChange: catalog.Invalidate,
		}},
		OrderHandler: &httpserver.OrderHTTP{Orders: &service.OrderService{
			Repo: r, Events: events, OnStockChange: catalog.Invalidate,
		}},
		PaymentHandler: &httpserver.PaymentHTTP{Payments: &service.PaymentService{
			Repo:          r,
			Gateway:       gateway,
			Currency:      cfg.Stripe.Currency,
			Events:        events,
			OnStockChange: catalog.Invalidate,
		}},
		StatsHandler:          &httpserver.StatsHTTP{Reports: &service.ReportService{Repo: r}},
		RecommendationHandler: &httpserver.RecommendationHTTP{Recs: &service.RecommendationService{Repo: r}},
	}

	limiter := ratelimit.PerMinute(cfg.RateLimit.PerMinute, 10*time.Minute)
	done := make(chan struct{})
	go limiter.Run(done)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(httpserver.Common(logger, cfg.CORS.Origins, limiter.Middleware())...)

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")
	close(done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := events.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
