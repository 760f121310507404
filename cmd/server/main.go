package main

// @title           Poll Service API
// @version         1.0
// @description     Real-time polling service with asynchronous vote processing
// @host            localhost:8080
// @BasePath        /
// @schemes         http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"poll-service/internal/broker"
	"poll-service/internal/config"
	"poll-service/internal/cron"
	"poll-service/internal/database"
	"poll-service/internal/poll"
	"poll-service/internal/routes"
	"poll-service/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting poll server")

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(database.DSNConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis.URI, database.RedisOptions{
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	pollRepo := poll.NewPollRepository(db)
	leaderboardCache := poll.NewLeaderboardCache(redisClient.GetClient())

	// Initialize Kafka producer
	producer, err := broker.NewVoteProducer(cfg.Kafka.Brokers, cfg.Kafka.VoteTopic, cfg.Kafka.PublishTimeout)
	if err != nil {
		slog.Error("Failed to connect Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize realtime hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize Kafka consumer
	deadLetter := broker.NewKafkaDeadLetter(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
	consumer, err := broker.NewVoteConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.VoteTopic,
		cfg.Kafka.GroupID,
		cfg.Kafka.Concurrency,
		pollRepo,
		hub,
		deadLetter,
		leaderboardCache,
	)
	if err != nil {
		slog.Error("Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := consumer.Start(startCtx); err != nil {
		startCancel()
		slog.Error("Failed to start vote consumer", "error", err)
		os.Exit(1)
	}
	startCancel()

	// Start the poll expiration job
	expirationJob := cron.NewExpirationJob(pollRepo)
	if err := expirationJob.Start(); err != nil {
		slog.Error("Failed to start expiration job", "error", err)
		os.Exit(1)
	}

	// Initialize router
	pollService := poll.NewPollService(pollRepo, producer, leaderboardCache)
	pollHandler := poll.NewPollHandler(pollService)

	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, pollHandler, hub)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with a bounded grace period
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expirationJob.Stop()

	if err := consumer.Stop(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	}
	if err := producer.Close(); err != nil {
		slog.Error("Producer shutdown error", "error", err)
	}
	if err := deadLetter.Close(); err != nil {
		slog.Error("Dead-letter writer shutdown error", "error", err)
	}

	// Drain HTTP before stopping the hub so connected clients can still
	// unregister during the grace period.
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	hub.Stop()

	slog.Info("Server stopped")
}
