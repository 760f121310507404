package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client *redis.Client
}

// RedisOptions tunes the client beyond what the URL encodes; zero values keep
// the driver defaults.
type RedisOptions struct {
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

func NewRedisConnection(uri string, tuning RedisOptions) (*RedisClient, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	if tuning.MaxRetries > 0 {
		opts.MaxRetries = tuning.MaxRetries
	}
	if tuning.DialTimeout > 0 {
		opts.DialTimeout = tuning.DialTimeout
	}
	if tuning.ReadTimeout > 0 {
		opts.ReadTimeout = tuning.ReadTimeout
	}
	if tuning.WriteTimeout > 0 {
		opts.WriteTimeout = tuning.WriteTimeout
	}
	if tuning.PoolSize > 0 {
		opts.PoolSize = tuning.PoolSize
	}
	if tuning.MinIdleConns > 0 {
		opts.MinIdleConns = tuning.MinIdleConns
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Redis connection established successfully")

	return &RedisClient{client: rdb}, nil
}

func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
