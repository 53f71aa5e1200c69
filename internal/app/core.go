package app

import (
	"context"
	"fmt"

	"github.com/franckmandon/vinylib-sub000/internal/catalog"
	"github.com/franckmandon/vinylib-sub000/internal/config"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/redis"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	storebadger "github.com/franckmandon/vinylib-sub000/internal/store/badger"
	"github.com/franckmandon/vinylib-sub000/internal/store/memory"
	storeredis "github.com/franckmandon/vinylib-sub000/internal/store/redis"
)

// Core is the storage substrate and the services built on it. It is shared
// by the HTTP server and the one-shot commands.
type Core struct {
	KV        store.KV
	Records   *store.Records
	Bookmarks *store.Bookmarks
	Users     *store.Users
	Catalog   *catalog.Service
	Accounts  *catalog.Accounts
}

// OpenCore connects the configured backend and builds the stores.
func OpenCore(ctx context.Context, cfg *config.Config, log logger.Logger) (*Core, error) {
	kv, err := openKV(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return newCore(kv, cfg, log), nil
}

func newCore(kv store.KV, cfg *config.Config, log logger.Logger) *Core {
	opts := store.DefaultOptions()
	if cfg.StoreTimeout > 0 {
		opts.OpTimeout = cfg.StoreTimeout
	}
	opts.MaxConflictRetries = cfg.MaxConflictRetries
	if cfg.StoreRetryBackoff > 0 {
		opts.RetryInterval = cfg.StoreRetryBackoff
	}

	records := store.NewRecords(kv, opts, log)
	bookmarks := store.NewBookmarks(kv, opts, log)
	users := store.NewUsers(kv, opts, log)

	return &Core{
		KV:        kv,
		Records:   records,
		Bookmarks: bookmarks,
		Users:     users,
		Catalog:   catalog.NewService(records, bookmarks, log),
		Accounts:  catalog.NewAccounts(users, cfg.AdminUsers),
	}
}

// Close releases the backend.
func (c *Core) Close() error {
	return c.KV.Close()
}

func openKV(ctx context.Context, cfg *config.Config, log logger.Logger) (store.KV, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		// Fail fast if Redis never becomes reachable
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		return storeredis.NewKV(client), nil

	case config.BackendBadger:
		log.Info("opening badger store", logger.String("path", cfg.BadgerPath))
		kv, err := storebadger.Open(storebadger.Options{Path: cfg.BadgerPath, Sync: true})
		if err != nil {
			return nil, err
		}
		return kv, nil

	case config.BackendMemory:
		log.Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
