package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/tsiki-shop/storefront-backend/api"
	"github.com/tsiki-shop/storefront-backend/api/routes"
	"github.com/tsiki-shop/storefront-backend/internal/auth"
	"github.com/tsiki-shop/storefront-backend/internal/cart"
	"github.com/tsiki-shop/storefront-backend/internal/coupons"
	product "github.com/tsiki-shop/storefront-backend/internal/products"
	"github.com/tsiki-shop/storefront-backend/internal/users"
	"github.com/tsiki-shop/storefront-backend/pkg/config"
	"github.com/tsiki-shop/storefront-backend/pkg/db"
	"github.com/tsiki-shop/storefront-backend/pkg/instance"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
	"github.com/tsiki-shop/storefront-backend/pkg/metrics"
	"github.com/tsiki-shop/storefront-backend/pkg/migrate"
	"github.com/tsiki-shop/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, dbClient.Close(), redisClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	userRepo := users.NewRepository(dbClient.DB())

	productService, err := product.NewService(product.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Storage: cart.RedisStorageFactory(redisClient, cfg.Cart.StateTTL),
		Coupons: coupons.NewBook(
			coupons.NewStaticBook(cfg.Cart.Coupons),
			coupons.NewRepository(dbClient.DB()),
		),
		Products:           productService,
		Metrics:            metrics.NewCartMetrics(registry),
		Logger:             logg,
		DefaultMaxQuantity: cfg.Cart.DefaultMaxQuantity,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Tx:             dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Metrics:        metrics.NewAuthMetrics(registry),
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	adminUsers, err := users.NewAdminService(userRepo)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Gatherer:       registry,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		AuthService:    authService,
		CartService:    cartService,
		ProductService: productService,
		AdminUsers:     adminUsers,
	})

	server := api.NewServer(cfg, handler)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.ID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
