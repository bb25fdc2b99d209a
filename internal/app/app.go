// Package app wires the storage, cache and ontology engine shared by the api
// and worker binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/graphwarehouse/engine/internal/metrics"
	"github.com/graphwarehouse/engine/internal/ontology"
	"github.com/graphwarehouse/engine/internal/repository"
	"github.com/graphwarehouse/engine/internal/storage"
	"github.com/graphwarehouse/engine/pkg/cache"
	"github.com/graphwarehouse/engine/pkg/config"
	"github.com/graphwarehouse/engine/pkg/database"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Store    *storage.Store
	Repos    *repository.Set
	Engine   *ontology.Engine
	Registry *prometheus.Registry

	stopCache context.CancelFunc
}

// Open connects to postgres and redis and builds the repositories and the
// engine over them.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db, err := database.OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{DB: db, Registry: reg}
	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	var backend cache.Cache
	switch cfg.CacheBackend {
	case "memory":
		cacheCtx, cancel := context.WithCancel(context.Background())
		a.stopCache = cancel
		backend = cache.NewMemoryCache(cacheCtx, time.Minute)
	default:
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		backend = cache.NewRedisCache(a.Redis)
	}
	cm, err := cache.NewMetrics(reg, cfg.CacheBackend)
	if err != nil {
		a.Close()
		return nil, err
	}
	em, err := metrics.NewEvolution(reg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Store = storage.NewStore(db)
	a.Repos = repository.NewSet(a.Store, repository.NewCached(cache.WithMetrics(backend, cm), cfg.CacheTTL))
	a.Engine = ontology.NewEngine(ontology.Deps{
		Metatypes:     a.Repos.Metatypes,
		Keys:          a.Repos.MetatypeKeys,
		Relationships: a.Repos.Relationships,
		Pairs:         a.Repos.Pairs,
		Probe:         a.Store.Probe,
		Versions:      a.Repos.Versions,
		Alerts:        a.Repos.Containers,
		Metrics:       em,
	}, ontology.Config{
		BatchSize:   cfg.EvolutionBatchSize,
		Concurrency: cfg.EvolutionConcurrency,
	})

	logger.L().Info("storage ready",
		zap.String("cache", cfg.CacheBackend),
		zap.Int("batch_size", cfg.EvolutionBatchSize),
		zap.Int("concurrency", cfg.EvolutionConcurrency))
	return a, nil
}

// PingRedis reports whether redis answers.
func (a *App) PingRedis(ctx context.Context) error {
	return a.Redis.Ping(ctx).Err()
}

// Close waits for pending cache purges and releases every connection.
func (a *App) Close() {
	if a.Repos != nil {
		a.Repos.Cache.Wait()
	}
	if a.stopCache != nil {
		a.stopCache()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.L().Warn("redis close failed", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.L().Warn("database close failed", zap.Error(err))
		}
	}
}
