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

	"github.com/etchbroker/makelar-backend/api/controllers"
	"github.com/etchbroker/makelar-backend/api/routes"
	"github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/internal/payments"
	"github.com/etchbroker/makelar-backend/internal/quotes"
	"github.com/etchbroker/makelar-backend/pkg/clock"
	"github.com/etchbroker/makelar-backend/pkg/config"
	"github.com/etchbroker/makelar-backend/pkg/db"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/ids"
	"github.com/etchbroker/makelar-backend/pkg/instance"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/metrics"
	"github.com/etchbroker/makelar-backend/pkg/migrate"
	"github.com/etchbroker/makelar-backend/pkg/outbox"
	"github.com/etchbroker/makelar-backend/pkg/redis"
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
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	clk := clock.System()
	idGen := ids.Default()

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Tx:          dbClient,
		Outbox:      outboxService,
		Clock:       clk,
		IDs:         idGen,
		Metrics:     domainMetrics,
		Logger:      logg,
		SLAPolicies: orders.DefaultSLAPolicies(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	activeStatuses, err := enums.ParseQuoteStatuses(cfg.Quote.ActiveStatuses)
	if err != nil {
		logg.Error(context.Background(), "invalid active quote statuses", err)
		os.Exit(1)
	}
	quotesRepo := quotes.NewRepository(dbClient.DB())
	guard, err := quotes.NewGuard(quotesRepo, activeStatuses)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote guard", err)
		os.Exit(1)
	}
	quotesService, err := quotes.NewService(quotes.ServiceParams{
		Repo:     quotesRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Guard:    guard,
		Clock:    clk,
		IDs:      idGen,
		Locker:   redis.NewPairLock(redisClient, cfg.Quote.PairLockTTL),
		Metrics:  domainMetrics,
		Logger:   logg,
		Validity: cfg.Quote.DefaultExpiry(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:    payments.NewRepository(dbClient.DB()),
		Orders:  ordersRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Clock:   clk,
		IDs:     idGen,
		Metrics: domainMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			map[string]controllers.Pinger{"database": dbClient, "redis": redisClient},
			redisClient,
			registry,
			routes.Services{Orders: ordersService, Quotes: quotesService, Payments: paymentsService},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
