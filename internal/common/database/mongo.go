// internal/common/database/mongo.go
package database

import (
	"context"
	"fmt"

	"repair-recommender/internal/common/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects lazily; the driver dials on first use or Ping.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return &MongoClient{Client: client, Database: client.Database(cfg.Database)}, nil
}

func (c *MongoClient) Name() string { return "mongo" }

func (c *MongoClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func (c *MongoClient) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
