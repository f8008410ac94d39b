package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mesa-system/config"
	"mesa-system/internal/database"
	"mesa-system/internal/gateway/health"
	"mesa-system/internal/notify"
	"mesa-system/internal/payments/providers"
	"mesa-system/internal/services/catalog"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/services/payments"
	"mesa-system/internal/services/staff"
	"mesa-system/internal/utils"
	"mesa-system/internal/vault"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	v, err := vault.NewFromHex(cfg.Vault.EncryptionKey)
	if err != nil {
		logger.Fatal("ENCRYPTION_KEY must be 64 hex characters", zap.Error(err))
	}
	tokens, err := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("invalid JWT_SECRET", zap.Error(err))
	}

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	var redisClient *redis.Client
	if rc, err := config.NewRedisClient(cfg.Redis); err != nil {
		logger.Warn("redis unavailable, running without cache and events", zap.Error(err))
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	dispatcher := notify.NewDispatcher(logger, cfg.Notify.Timeout, notify.SendersFromConfig(cfg.Notify)...)
	catalogStore := catalog.NewStore(db, redisClient, logger)
	orderSvc := orders.NewService(db, catalogStore, notify.NewRedisPublisher(redisClient), dispatcher, logger)
	paymentSvc := payments.NewService(db, orderSvc, providers.DefaultRegistry(), v, redisClient, logger, payments.Config{
		ProviderTimeout: cfg.Server.ProviderTimeout,
	})
	checker := health.NewChecker(db, redisClient, logger)

	router, err := setupRouter(services{
		orders:          orderSvc,
		catalog:         catalogStore,
		payments:        paymentSvc,
		staff:           staff.NewService(db, tokens, logger),
		tokens:          tokens,
		health:          checker,
		publicRateLimit: cfg.Server.PublicRateLimit,
	})
	if err != nil {
		logger.Fatal("invalid PUBLIC_RATE_LIMIT", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go checker.Run(ctx, 15*time.Second)
	go func() {
		if err := catalogStore.Watch(ctx); err != nil {
			logger.Warn("catalog change watcher stopped", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		logger.Fatal("failed to listen for gRPC", zap.String("port", cfg.Server.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	checker.Register(grpcServer)
	go func() {
		logger.Info("gRPC health server listening", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	dispatcher.Wait()
}
