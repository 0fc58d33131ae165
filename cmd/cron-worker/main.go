package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/etchbroker/makelar-backend/internal/cron"
	"github.com/etchbroker/makelar-backend/internal/orders"
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

const serviceName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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

	clk := clock.System()
	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Tx:          dbClient,
		Outbox:      outboxService,
		Clock:       clk,
		IDs:         ids.Default(),
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
		IDs:      ids.Default(),
		Metrics:  domainMetrics,
		Logger:   logg,
		Validity: cfg.Quote.DefaultExpiry(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes service", err)
		os.Exit(1)
	}

	quoteExpiry, err := cron.NewQuoteExpiryJob(cron.QuoteExpiryJobParams{
		Logger:    logg,
		Reader:    quotesRepo,
		Expirer:   quotesService,
		Clock:     clk,
		BatchSize: cfg.Cron.QuoteExpiryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quote expiry job", err)
		os.Exit(1)
	}
	orderSLA, err := cron.NewOrderSLAJob(cron.OrderSLAJobParams{
		Logger:    logg,
		Reader:    ordersRepo,
		Evaluator: ordersService,
		BatchSize: cfg.Cron.SLABatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order sla job", err)
		os.Exit(1)
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Clock:      clk,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(quoteExpiry, orderSLA, outboxRetention)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Clock:    clk,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"instance":    instance.ID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
