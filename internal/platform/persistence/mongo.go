package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tabsplit/internal/config"
)

// MongoDB serves the bills collection and the split journal
type MongoDB struct {
	logger *slog.Logger
	client *mongo.Client
	db     *mongo.Database
}

func mongoClientOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)
}

// NewMongoDB connects and requires the primary to answer within cfg.Timeout
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, mongoClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	m := NewMongoDBFromClient(logger, client, cfg.Database)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := m.Ping(pingCtx); err != nil {
		if dErr := client.Disconnect(context.WithoutCancel(ctx)); dErr != nil {
			logger.Warn("Disconnect after failed ping", "error", dErr)
		}
		return nil, err
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database, "max_pool", cfg.MaxPoolSize)
	return m, nil
}

func NewMongoDBFromClient(logger *slog.Logger, client *mongo.Client, database string) *MongoDB {
	return &MongoDB{logger: logger, client: client, db: client.Database(database)}
}

func (m *MongoDB) Database() *mongo.Database {
	return m.db
}

// Ping is used at startup and by the health endpoint
func (m *MongoDB) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection", "database", m.db.Name())
	return nil
}
