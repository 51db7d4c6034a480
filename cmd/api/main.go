package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/env"
	"github.com/angelmondragon/storefront/pkg/idempotency"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
	"github.com/angelmondragon/storefront/pkg/storage/rediskv"
	"github.com/angelmondragon/storefront/pkg/storage/sqlkv"
)

const shutdownTimeout = 15 * time.Second

// backend is the storage selected by STOREFRONT_STORAGE_DRIVER.
type backend struct {
	carts     storage.Store
	claims    redis.IdempotencyStore
	readiness []controllers.ReadinessCheck
	closers   []io.Closer
	purger    *sqlkv.Store
}

func (b *backend) Close() error {
	var errs error
	for _, c := range b.closers {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)
	platformFee := decimal.NewFromFloat(cfg.Checkout.DefaultPlatformFeePercent)

	api, err := commerce.NewClient(cfg.Commerce.BaseURL,
		commerce.WithAPIKey(cfg.Commerce.APIKey),
		commerce.WithTimeout(cfg.Commerce.Timeout),
		commerce.WithBreaker(cfg.Commerce.BreakerFailures, cfg.Commerce.BreakerTimeout),
		commerce.WithMetrics(metrics.NewDependencyMetrics(reg)),
		commerce.WithLogger(logg),
	)
	if err != nil {
		logg.Error(ctx, "failed to create commerce client", err)
		os.Exit(1)
	}

	storefrontService, err := storefront.NewService(api, logg)
	if err != nil {
		logg.Error(ctx, "failed to create storefront service", err)
		os.Exit(1)
	}

	claims, err := idempotency.NewManager(store.claims, cfg.Checkout.ReconcileTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}
	reconciler, err := checkout.NewReconciler(api, claims, logg, checkoutMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create payment reconciler", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, routes.Services{
		Storefront: storefrontService,
		Carts:      controllers.NewShopperCarts(store.carts, logg),
		Reconciler: reconciler,
		Orders:     api,
		Checkout: controllers.CheckoutOptions{
			API:                       api,
			Metrics:                   checkoutMetrics,
			CallbackURL:               checkout.CallbackURL(cfg.App.PublicBaseURL),
			MinimumOrderPolicy:        strings.ToLower(cfg.Checkout.MinimumOrderPolicy),
			DefaultPlatformFeePercent: &platformFee,
		},
		Readiness:   store.readiness,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.InstanceID(),
		"storage":  cfg.Storage.Driver,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "storefront-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})
	if store.purger != nil {
		group.Go(func() error {
			purgeExpired(gctx, logg, store.purger, cfg.Storage.PurgeInterval)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*backend, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverMemory:
		mem := memory.New(cfg.Storage.CartTTL)
		return &backend{carts: mem, claims: mem}, nil

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return &backend{
			carts:     rediskv.New(client, cfg.Storage.CartTTL),
			claims:    client,
			readiness: []controllers.ReadinessCheck{{Name: "redis", Pinger: client}},
			closers:   []io.Closer{client},
		}, nil

	case config.StorageDriverSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		kv := sqlkv.New(client, cfg.Storage.CartTTL)
		return &backend{
			carts:     kv,
			claims:    kv,
			readiness: []controllers.ReadinessCheck{{Name: "database", Pinger: client}},
			closers:   []io.Closer{client},
			purger:    kv,
		}, nil
	}
	return nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
}

func purgeExpired(ctx context.Context, logg *logger.Logger, kv *sqlkv.Store, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.PurgeExpired(ctx)
			if err != nil {
				logg.Error(ctx, "storage.purge_failed", err)
				continue
			}
			if n > 0 {
				logg.Info(logg.WithField(ctx, "purged", n), "storage.purged_expired")
			}
		}
	}
}
