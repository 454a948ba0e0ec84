package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lystopay/r4-gateway/internal/adapters/database"
	"github.com/lystopay/r4-gateway/internal/adapters/r4"
	"github.com/lystopay/r4-gateway/internal/auth"
	"github.com/lystopay/r4-gateway/internal/banks"
	"github.com/lystopay/r4-gateway/internal/config"
	bankHandler "github.com/lystopay/r4-gateway/internal/handlers/bank"
	healthHandler "github.com/lystopay/r4-gateway/internal/handlers/health"
	"github.com/lystopay/r4-gateway/internal/middleware"
	"github.com/lystopay/r4-gateway/internal/registry"
	"github.com/lystopay/r4-gateway/internal/services/gateway"
	pkghttp "github.com/lystopay/r4-gateway/pkg/http"
	pkgmiddleware "github.com/lystopay/r4-gateway/pkg/middleware"
	"github.com/lystopay/r4-gateway/pkg/observability"
	"github.com/lystopay/r4-gateway/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("invalid configuration", zap.Error(err))
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting R4 gateway",
		zap.String("port", cfg.Server.Port),
		zap.String("metrics_port", cfg.Server.MetricsPort))

	if cfg.R4.SecretFromMerchant {
		logger.Warn("R4_SECRET_KEY not set, signing with the merchant id")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database and stored-procedure tier
	db, err := database.NewAdapter(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	db.StartPoolMonitoring(ctx, time.Minute)

	executor := database.NewExecutor(db, logger)
	repo := gateway.NewRepository(executor, logger)

	// Upstream bank network
	upstreamHTTP := pkghttp.NewHTTPClient(pkghttp.BankClientConfig(), cfg.R4.RequestTimeout)
	upstream := r4.NewClient(cfg.R4, upstreamHTTP, logger)

	// Orchestrator and institution registry
	service := gateway.NewService(repo, upstream, logger)

	reg := registry.New(func(code string) banks.Handler {
		return banks.NewR4Adapter(code, service, upstream, logger)
	}, logger)
	banks.Seed(reg, service, upstream, logger)
	logger.Info("bank registry seeded", zap.Int("institutions", reg.Size()))

	// HTTP surface
	verifier := auth.NewVerifier(cfg.R4.SecretKey, cfg.R4.AuthToken, cfg.R4.MerchantID, logger)

	mux := http.NewServeMux()
	bankHandler.NewHandler(verifier, reg, service, logger).Register(mux)

	health := healthHandler.NewHandler(db, bankHandler.RouteCount, logger)
	mux.HandleFunc("GET /health", health.Handle)

	limiter := pkgmiddleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	allowList := middleware.NewIPAllowList(cfg.Security.AllowedIPs, logger)
	headers := middleware.NewSecurityHeaders(cfg.Logger.Development)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      headers.Middleware(limiter.Middleware(allowList.Middleware(mux))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsServer := observability.StartMetricsServer(cfg.Server.MetricsPort, health.Handle)

	// Teardown runs LIFO: stop taking traffic before closing the pool.
	manager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	manager.RegisterCloser("database", db)
	manager.RegisterNoErr("rate-limiter", limiter.Shutdown)
	manager.Register("metrics-server", metricsServer.Shutdown)
	manager.Register("http-server", server.Shutdown)

	go func() {
		logger.Info("gateway listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	manager.WaitForShutdown()
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	if cfg.Development {
		zapCfg := zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, _ := zapCfg.Build()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}
