/**
 * @description
 * This is the main entry point for the ledger-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3: Scheduled price snapshots.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/cashfree: Client for the Cashfree payments API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/goldvault/ledger-service/internal/api"
	"github.com/goldvault/ledger-service/internal/app"
	"github.com/goldvault/ledger-service/internal/config"
	"github.com/goldvault/ledger-service/internal/store"
	"github.com/goldvault/ledger-service/pkg/cashfree"
	rmrabbit "github.com/goldvault/ledger-service/pkg/rabbitmq"
)

func main() {
	// The .env file is optional; real deployments configure via environment.
	_ = godotenv.Load()

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting ledger-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish events.
	// This service only needs to publish, so we use a producer.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = rabbitProducer
	}

	// Initialize the client for the Cashfree payments API.
	cashfreeClient := cashfree.NewClient(cfg.CashfreeBaseURL, cfg.CashfreeClientID, cfg.CashfreeClientSecret)

	// Redis is optional; without it the abuse-prone endpoints go unlimited.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)
	if err := repository.EnsureSchema(context.Background()); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"failed ensuring tables (may already exist)\" err=%v", err)
	}

	// Initialize the core application service with its dependencies.
	ledgerService := app.NewService(repository, cashfreeClient, producer)
	if redisClient != nil {
		ledgerService.SetRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.VerifyRateLimitPerMinute,
			cfg.WithdrawRateLimitPerMinute,
		)
	}

	// Schedule the daily price snapshot and history pruning.
	retention := time.Duration(cfg.PriceHistoryRetentionDays) * 24 * time.Hour
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PriceSnapshotCronSpec, func() {
		snapshotCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ledgerService.SnapshotCurrentPrice(snapshotCtx, retention)
	}); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"price snapshot schedule invalid\" spec=%q err=%v", cfg.PriceSnapshotCronSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize the API handlers and router.
	ledgerHandlers := api.NewLedgerHandlers(ledgerService)
	router := api.LedgerRoutes(ledgerHandlers, cfg.JWTSecret, cfg.AllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
