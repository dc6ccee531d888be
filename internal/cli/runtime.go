package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"studysphere-tracker/internal/app"
	"studysphere-tracker/internal/config"
	"studysphere-tracker/internal/crypto"
	"studysphere-tracker/internal/infra/memory"
	"studysphere-tracker/internal/infra/postgres"
	redisinfra "studysphere-tracker/internal/infra/redis"
	"studysphere-tracker/internal/infra/sqlite"
	"studysphere-tracker/internal/logging"
)

// runtime is everything a command needs, built from config.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	storage  app.Storage
	catalog  app.PassageCatalog
	passages *postgres.PassageLoader // set when passages.source is postgres
	redis    *redis.Client
	pool     *pgxpool.Pool
	index    *redisinfra.PassageIndex
	tracker  *app.Tracker
	closers  []func()
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

func openRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openRuntimeWithConfig(ctx, cfg)
}

func openRuntimeWithConfig(ctx context.Context, cfg config.Config) (*runtime, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, func() { _ = logger.Sync() })

	if err := rt.openStorage(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.openCatalog(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		rt.Close()
		return nil, err
	}
	var hasher crypto.Hasher = crypto.NewArgon2Hasher(crypto.DefaultArgon2Params)
	if cfg.Password.Scheme == "legacy" {
		logger.Warn("legacy password checksum enabled; digests are not secure")
		hasher = crypto.LegacyChecksum{}
	}

	rt.tracker, err = app.NewTracker(ctx, rt.storage, rt.catalog, app.Options{
		Location: loc,
		Hasher:   hasher,
		Logger:   logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) openStorage(ctx context.Context) error {
	cfg := rt.cfg
	if cfg.Storage.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rt.redis.Close() })
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		rt.logger.Warn("memory storage: accounts and attempts are lost on exit")
		rt.storage = memory.NewStorage()
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		rt.storage = store
	case config.DriverRedis:
		if rt.redis == nil {
			return fmt.Errorf("redis driver needs storage.redis.addr")
		}
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		rt.storage = redisinfra.NewStorage(rt.redis, cfg.Storage.Redis.Prefix)
	case config.DriverPostgres:
		pool, err := rt.postgresPool(ctx)
		if err != nil {
			return err
		}
		rt.storage = postgres.NewStorage(pool)
	}
	rt.logger.Debug("storage opened", zap.String("driver", cfg.Storage.Driver))
	return nil
}

func (rt *runtime) openCatalog(ctx context.Context) error {
	var loader memory.PassageLoader = app.NewStoragePassageCatalog(rt.storage, rt.logger)
	if rt.cfg.Passages.Source == "postgres" {
		pool, err := rt.postgresPool(ctx)
		if err != nil {
			return err
		}
		rt.passages = postgres.NewPassageLoader(pool)
		loader = rt.passages
	}

	ttl := config.TTLDuration(rt.cfg.Passages.CacheTTL, 5*time.Minute)
	if rt.redis != nil {
		rt.index = redisinfra.NewPassageIndex(rt.redis, loader, rt.cfg.Storage.Redis.Prefix, ttl, rt.logger)
		rt.catalog = rt.index
		return nil
	}
	rt.catalog = memory.NewPassageCache(loader, ttl)
	return nil
}

func (rt *runtime) postgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	if rt.pool != nil {
		return rt.pool, nil
	}
	url := rt.cfg.Storage.Postgres.URL
	if _, err := postgres.Migrate(ctx, url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rt.pool = pool
	rt.closers = append(rt.closers, pool.Close)
	return pool, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
