package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/safanavk/smileshop-backend/api/routes"
	"github.com/safanavk/smileshop-backend/internal/cart"
	"github.com/safanavk/smileshop-backend/internal/coupons"
	"github.com/safanavk/smileshop-backend/internal/inventory"
	"github.com/safanavk/smileshop-backend/internal/orders"
	"github.com/safanavk/smileshop-backend/internal/payments"
	"github.com/safanavk/smileshop-backend/internal/returns"
	"github.com/safanavk/smileshop-backend/internal/users"
	"github.com/safanavk/smileshop-backend/internal/wallet"
	"github.com/safanavk/smileshop-backend/pkg/config"
	"github.com/safanavk/smileshop-backend/pkg/db"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/metrics"
	"github.com/safanavk/smileshop-backend/pkg/migrate"
	"github.com/safanavk/smileshop-backend/pkg/razorpay"
	"github.com/safanavk/smileshop-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	webhookGuard, err := redis.NewIdempotencyStore(redisClient, cfg.Webhook.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	gateway, err := razorpay.NewClient(cfg.Razorpay)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	gormDB := dbClient.DB()
	inventoryRepo := inventory.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	couponService, err := coupons.NewService(coupons.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}
	walletService, err := wallet.NewService(wallet.NewRepository(gormDB), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(ordersRepo, dbClient, cartService, couponService, inventoryRepo, walletService, gateway, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(orderService, ordersRepo, dbClient, inventoryRepo, cartService, usersRepo, walletService, gateway, cfg.Razorpay, cfg.Referral, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}
	returnService, err := returns.NewService(returns.NewRepository(gormDB), ordersRepo, dbClient, inventoryRepo, walletService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			webhookGuard,
			cartService,
			couponService,
			orderService,
			paymentService,
			walletService,
			returnService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdown
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
