// Package app wires configuration to repositories, caches and services.
// Both entry points (server and ingest CLI) build on it.
package app

import (
	"alcyxob/course-app/internal/cache"
	"alcyxob/course-app/internal/config"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/repository"
	"alcyxob/course-app/internal/repository/memory"
	"alcyxob/course-app/internal/repository/mongo"
	"alcyxob/course-app/internal/repository/postgres"
	"alcyxob/course-app/internal/service"
	"alcyxob/course-app/internal/storage"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Repositories is one storage backend opened for the process lifetime.
type Repositories struct {
	Content  repository.ContentRepository
	Progress repository.ProgressRepository
	Material repository.MaterialRepository

	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenRepositories connects the backend selected by database.driver and
// makes sure its indexes or tables exist.
func OpenRepositories(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Repositories, error) {
	switch cfg.Driver {
	case "mongo":
		client, err := mongo.ConnectDB(ctx, cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.Name)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(indexCtx, db); err != nil {
			_ = mongo.DisconnectDB(client)
			return nil, err
		}
		log.Info("mongo connected", "database", cfg.Name)
		return &Repositories{
			Content:  mongo.NewMongoContentRepository(db),
			Progress: mongo.NewMongoProgressRepository(db),
			Material: mongo.NewMongoMaterialRepository(db),
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			Close: func() error { return mongo.DisconnectDB(client) },
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = postgres.Close(db)
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info("postgres connected")
		return &Repositories{
			Content:  postgres.NewContentRepository(db),
			Progress: postgres.NewProgressRepository(db),
			Material: postgres.NewMaterialRepository(db),
			Ping: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			Close: func() error { return postgres.Close(db) },
		}, nil

	case "memory":
		store := memory.NewStore()
		log.Warn("using in-memory storage, data is lost on exit")
		return &Repositories{
			Content:  memory.NewContentRepository(store),
			Progress: memory.NewProgressRepository(store),
			Material: memory.NewMaterialRepository(store),
			Ping:     func(context.Context) error { return nil },
			Close:    func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// OpenRedis returns (nil, nil) when no address is configured.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Info("redis not configured, hierarchy cache and rate limiting disabled")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	log.Info("redis connected", "addr", cfg.Addr)
	return client, nil
}

// HierarchyCache selects the redis cache when a client exists.
func HierarchyCache(client *redis.Client, cfg config.RedisConfig, log *logger.Logger) cache.HierarchyCache {
	if client == nil {
		return cache.NewNopHierarchyCache()
	}
	return cache.NewRedisHierarchyCache(client, cfg.HierarchyTTL, log)
}

// RateCounter is nil without redis, which disables the limiter.
func RateCounter(client *redis.Client) cache.RateCounter {
	if client == nil {
		return nil
	}
	return cache.NewRedisRateCounter(client)
}

// Services groups the application services built over one backend.
type Services struct {
	Content   service.ContentService
	Sequencer service.Sequencer
	Progress  service.ProgressService
	Stats     service.StatsService
	Materials service.MaterialService // Nil without object storage
}

// NewServices builds every service. fileStorage may be nil.
func NewServices(cfg config.Config, repos *Repositories, hierarchyCache cache.HierarchyCache, fileStorage storage.FileStorage, log *logger.Logger) (*Services, error) {
	content := service.NewContentService(repos.Content, hierarchyCache, log)

	seq, err := service.NewSequencer(cfg.Sequencing.Strategy, content, repos.Content)
	if err != nil {
		return nil, err
	}
	policy := service.CompletionPolicy{
		WatchedRatio:     cfg.Progress.CompletionRatio,
		RemainingSeconds: cfg.Progress.CompletionRemainingSeconds,
	}

	svcs := &Services{
		Content:   content,
		Sequencer: seq,
		Progress:  service.NewProgressService(repos.Progress, content, policy, log),
		Stats:     service.NewStatsService(content, repos.Progress),
	}
	if fileStorage != nil {
		svcs.Materials = service.NewMaterialService(repos.Material, content, fileStorage, cfg.S3.PresignTTL, log)
	}
	return svcs, nil
}
