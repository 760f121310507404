package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type KafkaConfig struct {
	Brokers         []string
	VoteTopic       string
	DeadLetterTopic string
	GroupID         string
	Concurrency     int
	PublishTimeout  time.Duration
}

func LoadConfig() (*Config, error) {
	// Viper setup
	once.Do(func() {
		viper.SetDefault("POLL_PORT", "8080")
		viper.SetDefault("POLL_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("POLL_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
		viper.SetDefault("KAFKA_VOTE_TOPIC", "poll-votes")
		viper.SetDefault("KAFKA_DLQ_TOPIC", "poll-votes-dlq")
		viper.SetDefault("KAFKA_GROUP_ID", "poll-votes-group")
		viper.SetDefault("KAFKA_CONSUMER_CONCURRENCY", 3)
		viper.SetDefault("KAFKA_PUBLISH_TIMEOUT", 10*time.Second)
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("POSTGRES_USER", "postgres")
		viper.SetDefault("POSTGRES_PASSWORD", "password")
		viper.SetDefault("POSTGRES_HOST", "localhost")
		viper.SetDefault("POSTGRES_PORT", "5432")
		viper.SetDefault("POSTGRES_DB", "postgres")
		viper.SetDefault("POSTGRES_SSLMODE", "disable")
		viper.AutomaticEnv()
		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("POLL_HOST"),
				Port:         viper.GetString("POLL_PORT"),
				ReadTimeout:  viper.GetDuration("POLL_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("POLL_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("POLL_IDLE_TIMEOUT"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("POSTGRES_HOST"),
				Port:     viper.GetString("POSTGRES_PORT"),
				User:     viper.GetString("POSTGRES_USER"),
				Password: viper.GetString("POSTGRES_PASSWORD"),
				DBName:   viper.GetString("POSTGRES_DB"),
				SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			},
			Redis: RedisConfig{
				URI:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			Kafka: KafkaConfig{
				Brokers:         strings.Split(viper.GetString("KAFKA_BROKERS"), ","),
				VoteTopic:       viper.GetString("KAFKA_VOTE_TOPIC"),
				DeadLetterTopic: viper.GetString("KAFKA_DLQ_TOPIC"),
				GroupID:         viper.GetString("KAFKA_GROUP_ID"),
				Concurrency:     viper.GetInt("KAFKA_CONSUMER_CONCURRENCY"),
				PublishTimeout:  viper.GetDuration("KAFKA_PUBLISH_TIMEOUT"),
			},
		}
	})

	return ConfigInstance, nil
}
