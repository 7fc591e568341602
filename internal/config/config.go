// Package config provides configuration structures and validation for the split service.
// It handles environment-based configuration for the HTTP server, databases, message
// queues, the reconciliation store and the notification fanout.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field is one
// subsystem's settings and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Fanout      FanoutConfig
	Reconciler  ReconcilerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env    string
	Name   string
	Source string // Config file that was read, or "defaults+env"
}

// IsDevelopment reports whether the service runs in the development environment
func (a ApplicationConfig) IsDevelopment() bool {
	return a.Env == "development"
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response; 0 disables it for event streams
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	PaymentEventTopic string // Inbound payment lifecycle events
	IntegrationTopic  string // Outbound split state changes
	NumPartitions     int    // Number of partitions for topics
	ReplicationFactor int    // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64  // -2 first offset, -1 last offset
	DLQTopic          string // Topic for Dead Letter Queue
}

// BrokerList splits the comma separated KAFKA_BROKERS value
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig sizes the payment event worker pool
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// FanoutConfig tunes the notification hub
type FanoutConfig struct {
	DispatchPoolSize int           // Concurrent notification dispatches before events are dropped
	SubscriberBuffer int           // Events buffered per subscriber before it starts dropping
	KeepAlive        time.Duration // Ping interval on idle event streams
}

// ReconcilerConfig controls split session lifetimes and the periodic sweep
type ReconcilerConfig struct {
	ProcessingTimeout time.Duration // A processing payment older than this returns to pending
	QuiescencePeriod  time.Duration // Closed sessions idle this long are evicted from memory
	SweepInterval     time.Duration
}

// problems accumulates every invalid setting so one startup failure lists them all
type problems []error

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Errorf(format, args...))
	}
}

func (p *problems) positive(key string, d time.Duration) {
	p.check(d > 0, "%s must be greater than 0", key)
}

func (c *Config) validate() error {
	var p problems

	p.check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT must be between 1 and 65535")
	p.positive("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	p.positive("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	p.check(c.Server.WriteTimeout >= 0, "SERVER_WRITE_TIMEOUT must not be negative")
	p.positive("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	k := c.Kafka
	p.check(len(k.BrokerList()) > 0, "KAFKA_BROKERS is required")
	p.check(k.PaymentEventTopic != "", "KAFKA_PAYMENT_EVENT_TOPIC is required")
	p.check(k.IntegrationTopic != "", "KAFKA_INTEGRATION_TOPIC is required")
	p.check(k.DLQTopic == "" || (k.DLQTopic != k.PaymentEventTopic && k.DLQTopic != k.IntegrationTopic),
		"KAFKA_DLQ_TOPIC must differ from the payment and integration topics")
	p.check(k.ConsumerGroup != "", "KAFKA_CONSUMER_GROUP is required")
	p.check(k.MinBytes > 0, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	p.check(k.MaxBytes >= k.MinBytes, "KAFKA_CONSUMER_MAX_BYTES must not be below KAFKA_CONSUMER_MIN_BYTES")
	p.positive("KAFKA_CONSUMER_MAX_WAIT", k.MaxWait)
	p.check(k.StartOffset == -1 || k.StartOffset == -2, "KAFKA_CONSUMER_START_OFFSET must be -2 (first) or -1 (last)")

	pg := c.Postgres
	p.check(pg.URL != "", "POSTGRES_URL is required")
	p.check(pg.MinConns > 0, "POSTGRES_MIN_CONNS must be greater than 0")
	p.check(pg.MaxConns >= pg.MinConns, "POSTGRES_MAX_CONNS must not be below POSTGRES_MIN_CONNS")
	p.positive("POSTGRES_MAX_CONN_LIFETIME", pg.ConnMaxLifetime)
	p.positive("POSTGRES_MAX_CONN_IDLE_TIME", pg.ConnMaxIdleTime)
	p.check(pg.MigrationsPath != "", "POSTGRES_MIGRATIONS_PATH is required")

	mg := c.MongoDB
	p.check(mg.URI != "", "MONGO_URI is required")
	p.check(mg.Database != "", "MONGO_DATABASE is required")
	p.positive("MONGO_TIMEOUT", mg.Timeout)
	p.check(mg.MinPoolSize > 0, "MONGO_MIN_POOL_SIZE must be greater than 0")
	p.check(mg.MaxPoolSize >= mg.MinPoolSize, "MONGO_MAX_POOL_SIZE must not be below MONGO_MIN_POOL_SIZE")
	p.positive("MONGO_MAX_CONN_IDLE_TIME", mg.MaxConnIdleTime)

	p.positive("OUTBOX_POLLING_INTERVAL", c.Outbox.PollingInterval)
	p.check(c.Outbox.BatchSize > 0, "OUTBOX_BATCH_SIZE must be greater than 0")
	p.check(c.Outbox.MaxRetryAttempts > 0, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")

	p.check(c.WorkerPool.Size > 0, "WORKER_POOL_SIZE must be greater than 0")
	p.check(c.Fanout.DispatchPoolSize > 0, "FANOUT_DISPATCH_POOL_SIZE must be greater than 0")
	p.check(c.Fanout.SubscriberBuffer > 0, "FANOUT_SUBSCRIBER_BUFFER must be greater than 0")
	p.positive("FANOUT_KEEP_ALIVE", c.Fanout.KeepAlive)

	r := c.Reconciler
	p.positive("RECONCILER_PROCESSING_TIMEOUT", r.ProcessingTimeout)
	p.positive("RECONCILER_QUIESCENCE_PERIOD", r.QuiescencePeriod)
	p.positive("RECONCILER_SWEEP_INTERVAL", r.SweepInterval)
	p.check(r.SweepInterval <= 0 || r.ProcessingTimeout <= 0 || r.SweepInterval <= r.ProcessingTimeout,
		"RECONCILER_SWEEP_INTERVAL must not exceed RECONCILER_PROCESSING_TIMEOUT")

	return errors.Join(p...)
}
