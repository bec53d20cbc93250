// @title        Store API
// @version      1.0
// @description  Online store: catalog, cart, orders, wishlist and admin dashboard.
// @BasePath     /
// @securityDefinitions.basic  BasicAuth
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/MikeMC777/store-api/internal/admin"
	"github.com/MikeMC777/store-api/internal/cart"
	"github.com/MikeMC777/store-api/internal/config"
	"github.com/MikeMC777/store-api/internal/events"
	"github.com/MikeMC777/store-api/internal/metrics"
	ord "github.com/MikeMC777/store-api/internal/order"
	prod "github.com/MikeMC777/store-api/internal/product"
	"github.com/MikeMC777/store-api/internal/rpc"
	"github.com/MikeMC777/store-api/internal/storage/postgres"
	"github.com/MikeMC777/store-api/internal/telemetry"
	"github.com/MikeMC777/store-api/internal/user"
	"github.com/MikeMC777/store-api/internal/wishlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("store-api stopped", zap.Error(err))
	}
	logger.Info("store-api stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "api")

	users := user.NewService(user.NewPGRepo(pool), logger)
	if cfg.AdminEmail != "" {
		if _, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	store := ord.NewPGStore(pool, cfg.KafkaTopic).WithTimeout(cfg.DBQueryTimeout)
	orders := ord.NewManager(store, logger, m)

	gin.SetMode(cfg.GinMode)
	router := newRouter(deps{
		log:               logger,
		metrics:           m,
		gatherer:          metrics.Handler(reg),
		users:             users,
		products:          prod.NewPGRepo(pool),
		carts:             cart.NewPGRepo(pool),
		wishlist:          wishlist.NewPGRepo(pool),
		orders:            orders,
		stats:             admin.NewPGRepo(pool),
		lowStockThreshold: cfg.LowStockThreshold,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if grpcLis != nil {
		grpcSrv, health := rpc.NewGRPCServer(orders, logger)
		lis := grpcLis
		g.Go(func() error {
			logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			health.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	if cfg.KafkaEnabled() {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers)
		defer func() { _ = pub.Close() }()
		relay := events.NewRelay(events.NewOutbox(pool), pub, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize).WithMetrics(m)
		g.Go(func() error {
			logger.Info("outbox relay started", zap.String("brokers", cfg.KafkaBrokers))
			relay.Run(gctx)
			return nil
		})
	} else {
		logger.Info("outbox relay disabled, events stay in the outbox table")
	}

	return g.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
