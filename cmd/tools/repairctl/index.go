package main

import (
	"context"
	"fmt"

	"repair-recommender/internal/common/config"
	"repair-recommender/internal/common/database"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/directory"

	"github.com/urfave/cli/v3"
)

const (
	targetElasticsearch = "elasticsearch"
	targetMongo         = "mongo"
)

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Load a repairer fixture into Elasticsearch or MongoDB",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fixture", Aliases: []string{"f"}, Required: true, Usage: "repairer fixture (YAML or JSON)"},
			&cli.StringFlag{Name: "target", Value: targetElasticsearch, Usage: "elasticsearch or mongo"},
			&cli.StringFlag{Name: "es-url", Value: "http://localhost:9200", Sources: cli.EnvVars("ELASTICSEARCH_URL")},
			&cli.StringFlag{Name: "index", Value: directory.DefaultIndex},
			&cli.StringFlag{Name: "mongo-uri", Value: "mongodb://localhost:27017", Sources: cli.EnvVars("MONGO_URI")},
			&cli.StringFlag{Name: "mongo-db", Value: "repairs"},
			&cli.StringFlag{Name: "collection", Value: directory.DefaultCollection},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target := cmd.String("target")
			if target != targetElasticsearch && target != targetMongo {
				return fmt.Errorf("unknown target %q (elasticsearch, mongo)", target)
			}

			fixture, err := directory.LoadFile(cmd.String("fixture"))
			if err != nil {
				return err
			}
			repairers := fixture.All()
			log := logger.NewStructured("info", "console")

			var n int
			switch target {
			case targetElasticsearch:
				n, err = indexElasticsearch(ctx, cmd, log, fixture)
			case targetMongo:
				n, err = indexMongo(ctx, cmd, log, fixture)
			}
			if err != nil {
				return err
			}

			log.Info("fixture loaded", map[string]interface{}{
				"target":    target,
				"repairers": len(repairers),
				"written":   n,
			})
			_, err = fmt.Fprintf(cmd.Root().Writer, "%d/%d repairers written to %s\n", n, len(repairers), target)
			return err
		},
	}
}

func indexElasticsearch(ctx context.Context, cmd *cli.Command, log logger.Logger, fixture *directory.File) (int, error) {
	client, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: cmd.String("es-url")})
	if err != nil {
		return 0, err
	}
	es := directory.NewElasticsearch(client.Client, cmd.String("index"), 0, log)
	if err := es.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensure index: %w", err)
	}
	return es.Index(ctx, fixture.All())
}

func indexMongo(ctx context.Context, cmd *cli.Command, log logger.Logger, fixture *directory.File) (int, error) {
	client, err := database.NewMongo(ctx, config.MongoConfig{
		URI:      cmd.String("mongo-uri"),
		Database: cmd.String("mongo-db"),
	})
	if err != nil {
		return 0, err
	}
	defer client.Close(context.Background())

	m := directory.NewMongo(client.Database.Collection(cmd.String("collection")), log)
	if err := m.EnsureIndexes(ctx); err != nil {
		return 0, fmt.Errorf("ensure indexes: %w", err)
	}
	return m.Upsert(ctx, fixture.All())
}

func flushCacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "flush-cache",
		Usage: "Drop every cached directory read from Redis",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "redis", Value: "localhost:6379", Sources: cli.EnvVars("REDIS_ADDRESS")},
			&cli.StringFlag{Name: "password", Sources: cli.EnvVars("REDIS_PASSWORD")},
			&cli.StringFlag{Name: "prefix", Value: directory.DefaultCacheKeyPrefix},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := database.NewRedis(config.RedisConfig{
				Address:  cmd.String("redis"),
				Password: cmd.String("password"),
			})
			defer client.Close()

			cache := directory.NewCached(nil, client.Client, 0, cmd.String("prefix"), logger.NewNoOpLogger())
			removed, err := cache.Invalidate(ctx)
			if err != nil {
				return fmt.Errorf("flush cache: %w", err)
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "%d cached reads removed\n", removed)
			return err
		},
	}
}
