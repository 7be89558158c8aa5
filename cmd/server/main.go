package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-engine/config"
	"order-engine/internal/api"
	"order-engine/internal/auth"
	"order-engine/internal/broker"
	"order-engine/internal/redisclient"
	"order-engine/internal/service"
	"order-engine/internal/store"
	"order-engine/internal/util"
	"order-engine/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting order engine",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	tp, err := util.InitTracer("order-engine", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	readiness := map[string]api.ReadinessCheck{"postgres": db.Ping}

	// The order lock and availability cache are optional; without Redis the
	// engine relies on row locks alone.
	var locker service.OrderLocker
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without order lock and availability cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		locker = redisClient
		readiness["redis"] = redisClient.Ping
		logger.Info("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)

	orderService := service.NewOrderService(
		service.NewStoreRepository(db),
		locker,
		eventPublisher,
		cfg.Business.OrderLockTTL(),
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var availabilityWorker *worker.AvailabilityWorker
	if redisClient != nil {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		availabilityWorker = worker.NewAvailabilityWorker(consumer, db, redisClient)

		if err := availabilityWorker.SyncAvailability(workerCtx); err != nil {
			logger.Error("Failed to sync availability to Redis", zap.Error(err))
		}

		go func() {
			if err := availabilityWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Availability worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, logger)

	router := gin.New()
	handler := api.NewHandler(orderService, jwtManager, readiness, cfg.Business.MutationTimeout())
	if redisClient != nil {
		handler.WithAvailability(redisClient)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if availabilityWorker != nil {
		if err := availabilityWorker.Stop(); err != nil {
			logger.Error("Error stopping availability worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
