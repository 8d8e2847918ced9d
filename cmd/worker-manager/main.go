package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repair-recommender/internal/api"
	"repair-recommender/internal/availability"
	"repair-recommender/internal/common/camunda"
	"repair-recommender/internal/common/config"
	"repair-recommender/internal/common/database"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/observability"
	"repair-recommender/internal/directory"
	"repair-recommender/internal/recommendation"
	fir "repair-recommender/internal/workers/recommendation/find-optimal-repairers"
	"repair-recommender/pkg/registry"

	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// backends holds every connection opened at start-up so they can be
// health-checked and closed together.
type backends struct {
	postgres *database.PostgresClient
	es       *database.ElasticsearchClient
	mongo    *database.MongoClient
	redis    *database.RedisClient
	zeebe    *camunda.Client
}

func (b *backends) checkers() []database.Checker {
	var out []database.Checker
	if b.postgres != nil {
		out = append(out, b.postgres)
	}
	if b.es != nil {
		out = append(out, b.es)
	}
	if b.mongo != nil {
		out = append(out, b.mongo)
	}
	if b.redis != nil {
		out = append(out, b.redis)
	}
	if b.zeebe != nil {
		out = append(out, b.zeebe)
	}
	return out
}

func (b *backends) close(ctx context.Context, log *zap.Logger) {
	if b.zeebe != nil {
		if err := b.zeebe.Close(); err != nil {
			log.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if b.postgres != nil {
		_ = b.postgres.Close()
	}
	if b.mongo != nil {
		_ = b.mongo.Close(ctx)
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting repair recommender",
		zap.String("version", cfg.App.Version),
		zap.String("directory", cfg.Directory.Source),
		zap.String("availability", cfg.Availability.Source),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &backends{}
	defer b.close(context.Background(), zapLog)

	if cfg.Database.Redis.Address != "" {
		b.redis = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return b.redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	}

	dir, err := buildDirectory(ctx, cfg, b, log, zapLog)
	if err != nil {
		zapLog.Fatal("directory setup failed", zap.Error(err))
	}

	avail, err := buildAvailability(cfg, b)
	if err != nil {
		zapLog.Fatal("availability setup failed", zap.Error(err))
	}

	reg, err := registry.LoadRegistry(cfg.Recommendation.RegistryPath)
	if err != nil {
		zapLog.Fatal("problem-type registry load failed", zap.Error(err))
	}
	resolver := registry.NewResolver(reg, cfg.Recommendation.FuzzyDistance)

	engine := recommendation.NewEngine(cfg.Recommendation.EngineConfig(), dir, avail,
		recommendation.WithLogger(log.With(map[string]interface{}{"component": "engine"})),
		recommendation.WithKeywords(resolver),
		recommendation.WithTracer(obs.Tracer()),
	)

	// --- Zeebe worker ---
	var handler *fir.Handler
	if config.IsWorkerEnabled(cfg, fir.TaskType) && cfg.Camunda.BrokerAddress != "" {
		err = retryWithBackoff(func() error {
			var err error
			b.zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		handler, err = fir.NewHandler(fir.HandlerOptions{
			AppConfig:     cfg,
			Camunda:       b.zeebe,
			Engine:        engine,
			Logger:        log,
			Observability: obs,
		})
		if err != nil {
			zapLog.Fatal("worker setup failed", zap.Error(err))
		}
		if err := handler.Register(); err != nil {
			zapLog.Fatal("worker registration failed", zap.Error(err))
		}
	}

	// --- HTTP API ---
	var srv *http.Server
	if cfg.Server.Enabled {
		apiServer := api.NewServer(api.Options{
			Engine:    engine,
			Registry:  resolver,
			Checkers:  b.checkers(),
			Logger:    log.With(map[string]interface{}{"component": "api"}),
			Version:   cfg.App.Version,
			RateLimit: cfg.Server.RateLimit,
			Burst:     cfg.Server.Burst,
		})
		srv = &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      apiServer.Handler(),
			ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		}
		go func() {
			zapLog.Info("HTTP API listening", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("HTTP API failed", zap.Error(err))
				stop()
			}
		}()
	}

	if handler == nil && srv == nil {
		zapLog.Warn("Neither the worker nor the HTTP API is enabled; nothing to do")
		return
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if handler != nil {
		handler.Close()
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("HTTP API shutdown failed", zap.Error(err))
		}
	}

	zapLog.Info("Repair recommender stopped gracefully")
}

// buildDirectory connects the configured source, then layers the Redis
// cache and request collapsing on top.
func buildDirectory(ctx context.Context, cfg *config.Config, b *backends, log logger.Logger, zapLog *zap.Logger) (directory.Directory, error) {
	var dir directory.Directory
	dirLog := log.With(map[string]interface{}{"component": "directory", "source": cfg.Directory.Source})

	switch cfg.Directory.Source {
	case config.DirectoryPostgres:
		err := retryWithBackoff(func() error {
			var err error
			b.postgres, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return b.postgres.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		dir = directory.NewPostgres(b.postgres.DB, cfg.Directory.Table, dirLog)

	case config.DirectoryElasticsearch:
		err := retryWithBackoff(func() error {
			var err error
			b.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return b.es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		es := directory.NewElasticsearch(b.es.Client, cfg.Directory.Index, cfg.Directory.MaxHits, dirLog)
		if err := es.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure index: %w", err)
		}
		dir = es

	case config.DirectoryMongo:
		err := retryWithBackoff(func() error {
			var err error
			b.mongo, err = database.NewMongo(ctx, cfg.Database.Mongo)
			if err != nil {
				return err
			}
			return b.mongo.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "MongoDB connection")
		if err != nil {
			return nil, err
		}
		collection := cfg.Directory.Collection
		if collection == "" {
			collection = directory.DefaultCollection
		}
		m := directory.NewMongo(b.mongo.Database.Collection(collection), dirLog)
		if err := m.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		dir = m

	case config.DirectoryFile:
		f, err := directory.LoadFile(cfg.Directory.FilePath)
		if err != nil {
			return nil, err
		}
		zapLog.Info("Loaded repairer fixture", zap.Int("repairers", len(f.All())))
		dir = f

	default:
		return nil, fmt.Errorf("unknown directory source %q", cfg.Directory.Source)
	}

	if cfg.Directory.CacheTTL > 0 && b.redis != nil {
		dir = directory.NewCached(dir, b.redis.Client, config.GetDuration(cfg.Directory.CacheTTL),
			cfg.Directory.CacheKeyPrefix, dirLog)
	}
	return directory.NewShared(dir), nil
}

func buildAvailability(cfg *config.Config, b *backends) (availability.Provider, error) {
	loc, err := availability.LoadLocation(cfg.Availability.Timezone)
	if err != nil {
		return nil, err
	}
	hours := availability.NewOpeningHours(loc, availability.WithMinLead(config.GetDuration(cfg.Availability.MinLead)))

	switch cfg.Availability.Source {
	case config.AvailabilityOpeningHours:
		return hours, nil
	case config.AvailabilityRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("redis availability requires database.redis")
		}
		return availability.NewRedisSlots(b.redis.Client, cfg.Availability.KeyPrefix, hours), nil
	case config.AvailabilityStatic:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown availability source %q", cfg.Availability.Source)
	}
}
