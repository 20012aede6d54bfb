/**
 * @description
 * This is the main entry point for the benefit-service. It initializes all
 * components — configuration, logging, storage, the message broker producer,
 * the lock coordinator, the application service, and the HTTP server — wires
 * them together, and runs until a shutdown signal arrives.
 *
 * Storage backend selection: with DATABASE_URL set the service runs on
 * PostgreSQL; without it, an in-memory store is used so the service can boot
 * for local development.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: HTTP routing.
 * - github.com/jackc/pgx/v5 (+ pgx-shopspring-decimal): PostgreSQL driver and numeric codec.
 * - github.com/redis/go-redis/v9: Rate limiter backend.
 * - go.uber.org/zap: Structured logging.
 * - internal/api, internal/app, internal/config, internal/lock, internal/store, pkg/rabbitmq.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beneficio/benefit-service/internal/api"
	"github.com/beneficio/benefit-service/internal/app"
	"github.com/beneficio/benefit-service/internal/config"
	"github.com/beneficio/benefit-service/internal/lock"
	"github.com/beneficio/benefit-service/internal/store"
	"github.com/beneficio/benefit-service/pkg/rabbitmq"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("config load failed", zap.String("component", "bootstrap"), zap.Error(err))
	}

	logger.Info("starting benefit-service",
		zap.String("component", "bootstrap"),
		zap.String("port", cfg.ServerPort),
	)

	// Select the storage backend.
	var repository store.Repository
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database url parse failed", zap.String("component", "bootstrap"), zap.Error(err))
		}
		poolConfig.MaxConns = 50
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute
		// Scan numeric(15,2) columns straight into shopspring decimals.
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			pgxdecimal.Register(conn.TypeMap())
			return nil
		}

		dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			logger.Fatal("database connection failed", zap.String("component", "bootstrap"), zap.Error(err))
		}
		defer dbpool.Close()
		logger.Info("database connected", zap.String("component", "bootstrap"))

		repository = store.NewPostgresRepository(dbpool)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory store", zap.String("component", "bootstrap"))
		repository = store.NewMemoryRepository()
	}

	// Initialize the RabbitMQ producer to publish transfer events. This
	// service only publishes, so a producer is enough.
	var eventProducer rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq producer unavailable; using fallback",
				zap.String("component", "bootstrap"), zap.Error(err))
			eventProducer = &rabbitmq.EventProducerFallback{}
		} else {
			defer producer.Close()
			logger.Info("rabbitmq producer connected", zap.String("component", "bootstrap"))
			eventProducer = producer
		}
	}

	// Optional redis-backed rate limiting for the transfer endpoint.
	var limiter *app.RedisTransferRateLimiter
	if cfg.TransferRateLimitPerMinute > 0 && cfg.RedisURL != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed; transfer rate limiting disabled",
				zap.String("component", "bootstrap"), zap.Error(parseErr))
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				logger.Warn("redis ping failed; transfer rate limiting disabled",
					zap.String("component", "bootstrap"), zap.Error(pingErr))
				redisClient.Close()
			} else {
				defer redisClient.Close()
				logger.Info("redis connected", zap.String("component", "bootstrap"))
				limiter = app.NewRedisTransferRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
			}
		}
	}

	// Wire the lock coordinator, service, and HTTP layer together.
	coordinator := lock.NewCoordinator(cfg.LockWaitTimeout())
	benefitService := app.NewService(repository, coordinator, eventProducer, logger)
	benefitHandlers := api.NewBenefitHandlers(benefitService, limiter, cfg.TransferRateLimitPerMinute, logger)

	router := chi.NewRouter()
	router.Mount("/api/v1/benefits", api.BenefitRoutes(benefitHandlers, cfg.CORSAllowedOrigins))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("component", "http"), zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped unexpectedly", zap.String("component", "http"), zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started", zap.String("component", "http"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.String("component", "http"), zap.Error(err))
	}

	logger.Info("shutdown complete", zap.String("component", "http"))
}
