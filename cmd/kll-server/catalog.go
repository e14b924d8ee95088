package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/catalog"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/config"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// catalogBackend is the wired catalog plus the handles health checks need
type catalogBackend struct {
	lookup catalog.Lookup
	db     *sql.DB
	redis  *redis.Client
}

func (b *catalogBackend) Close(ctx context.Context) error {
	var errs []error
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	return errors.Join(errs...)
}

// openCatalog builds lookup -> [redis] -> [lru] in front of the configured source
func openCatalog(ctx context.Context, cfg config.CatalogConfig, logger *observability.Logger, metrics *observability.Metrics) (*catalogBackend, error) {
	backend := &catalogBackend{}
	log := logger.WithField("component", "catalog")
	var fileCatalog *catalog.FileCatalog

	switch cfg.Driver {
	case config.CatalogFile:
		fc, err := catalog.NewFileCatalog(cfg.File, logger)
		if err != nil {
			return nil, err
		}
		if err := fc.Watch(ctx); err != nil {
			log.WithError(err).Warn("Catalog hot reload disabled")
		}
		backend.lookup = fc
		fileCatalog = fc
		log.WithFields(map[string]interface{}{"path": cfg.File, "items": len(fc.Items())}).Info("File catalog loaded")

	case config.CatalogSQLite, config.CatalogPostgres:
		db, err := catalog.OpenDB(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		backend.db = db

		sqlLookup := catalog.NewSQLLookup(db, cfg.Driver)
		if err := sqlLookup.EnsureSchema(ctx); err != nil {
			backend.Close(ctx)
			return nil, err
		}
		if err := seedCatalog(ctx, sqlLookup, cfg.File, log); err != nil {
			backend.Close(ctx)
			return nil, err
		}
		backend.lookup = sqlLookup
		log.WithField("driver", cfg.Driver).Info("SQL catalog connected")

	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			backend.Close(ctx)
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		backend.redis = redis.NewClient(opts)
		if err := backend.redis.Ping(ctx).Err(); err != nil {
			// the cache is optional; lookups fall through while redis is down
			log.WithError(err).Warn("Redis unavailable at startup")
		}
		redisLookup := catalog.NewRedisLookup(backend.lookup, backend.redis, cfg.RedisTTL, logger, metrics)
		backend.lookup = redisLookup
		if fileCatalog != nil {
			fileCatalog.OnReload(func(ids []string) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := redisLookup.Invalidate(ctx, ids...); err != nil {
					log.WithError(err).Warn("Failed to invalidate redis catalog cache after reload")
				}
			})
		}
	}

	if cfg.CacheSize > 0 {
		cached := catalog.NewCachedLookup(backend.lookup, cfg.CacheSize, cfg.CacheTTL, metrics)
		backend.lookup = cached
		if fileCatalog != nil {
			fileCatalog.OnReload(func([]string) { cached.Purge() })
		}
	}

	return backend, nil
}

// seedCatalog upserts the catalog file into the database when the file exists
func seedCatalog(ctx context.Context, l *catalog.SQLLookup, path string, log *observability.Logger) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	items, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	if err := l.Upsert(ctx, items); err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{"path": path, "items": len(items)}).Info("Catalog seeded from file")
	return nil
}
