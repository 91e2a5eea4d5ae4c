package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/quoteflow-backend/internal/adapter/grpc"
	"github.com/simaogato/quoteflow-backend/internal/adapter/httpapi"
	"github.com/simaogato/quoteflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/quoteflow-backend/internal/config"
	"github.com/simaogato/quoteflow-backend/internal/logger"
	"github.com/simaogato/quoteflow-backend/internal/metrics"
	"github.com/simaogato/quoteflow-backend/internal/migrations"
	"github.com/simaogato/quoteflow-backend/internal/usecase/pricebook"
	"github.com/simaogato/quoteflow-backend/internal/usecase/rollup"
	"github.com/simaogato/quoteflow-backend/internal/usecase/seeder"
)

const (
	serviceName     = "quoteflow"
	connectAttempts = 5
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", os.Getenv("QUOTEFLOW_CONFIG"), "path to a YAML/TOML/JSON config file (optional)")
	flag.Parse()

	// 1. Load configuration and logger
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	defaultMarkup, err := cfg.DefaultMarkup()
	if err != nil {
		zlog.Fatal("invalid pricing config", zap.Error(err))
	}

	// 2. Setup Database
	ctx := context.Background()
	db, err := connect(ctx, cfg.Postgres.ConnString(), zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Up(db.DB); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	// 3. Initialize Repositories (Postgres)
	componentRepo := postgres.NewComponentRepository(db)
	assemblyRepo := postgres.NewAssemblyRepository(db)
	ruleRepo := postgres.NewMarkupRuleRepository(db)

	// 4. Initialize Services (Use Cases)
	reg := metrics.NewRegistry()

	rollupService := rollup.NewRollupService(componentRepo, assemblyRepo, ruleRepo, reg, zlog.Named("rollup"))
	if cfg.Pricing.MaxParallel > 0 {
		rollupService.MaxParallel = cfg.Pricing.MaxParallel
	}
	priceBookService := pricebook.NewPriceBookService(componentRepo, reg, zlog.Named("pricebook"))

	// Seed the default markup rule when one is configured
	ruleSeeder := seeder.NewRuleSeeder(ruleRepo, defaultMarkup)
	created, err := ruleSeeder.Seed(ctx)
	if err != nil {
		zlog.Fatal("failed to seed default markup rule", zap.Error(err))
	}
	if created {
		zlog.Info("default markup rule seeded", zap.String("percent", defaultMarkup.String()))
	}

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(zlog.Named("grpc")),
			grpcadapter.AuthInterceptor(cfg.GRPC.APIToken),
		),
	)
	grpcadapter.RegisterPricingServer(grpcServer, grpcadapter.NewServer(rollupService, priceBookService))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		zlog.Fatal("failed to listen", zap.String("addr", cfg.GRPC.Addr), zap.Error(err))
	}

	go func() {
		zlog.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			zlog.Fatal("failed to serve gRPC server", zap.Error(err))
		}
	}()

	// 6. Start operational HTTP server (health, readiness, metrics)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(reg, db, zlog.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to serve HTTP server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, httpServer, zlog)
}

// connect opens the database, retrying while Postgres is still starting up
func connect(ctx context.Context, connStr string, zlog *zap.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := postgres.NewDB(ctx, connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		zlog.Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down both servers
func waitForShutdown(grpcServer *grpclib.Server, httpServer *http.Server, zlog *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	zlog.Info("shutting down gracefully", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zlog.Warn("HTTP server shutdown", zap.Error(err))
	}

	grpcServer.GracefulStop()
	zlog.Info("servers stopped")
}
