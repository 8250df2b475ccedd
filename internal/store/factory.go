package store

import (
	"context"
	"fmt"
	"time"

	"inkcloud/internal/db"
	"inkcloud/internal/types"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewStore creates the backend selected by configuration.
// With no explicit backend: redis if a Redis DSN is set, the database if a database DSN is set,
// otherwise the file store. A data directory that cannot be used degrades to memory.
func NewStore(cfg types.ConfigManager) (Store, error) {
	storage := cfg.GetStorageConfig()
	backend := storage.Backend
	if backend == "" {
		switch {
		case cfg.GetRedisDSN() != "":
			backend = BackendRedis
		case cfg.GetDatabaseConfig().DSN != "":
			backend = BackendDatabase
		default:
			backend = BackendFile
		}
	}

	switch backend {
	case BackendRedis:
		return newRedisFromDSN(cfg.GetRedisDSN())

	case BackendDatabase:
		gormDB, err := db.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		logrus.Info("Using database settings store.")
		return NewDBStore(gormDB), nil

	case BackendFile:
		fileStore, err := NewFileStore(storage.DataDir)
		if err != nil {
			logrus.WithError(err).Warn("Data directory unavailable, falling back to in-memory settings store. Changes will not survive a restart.")
			return NewMemoryStore(), nil
		}
		logrus.WithField("dir", fileStore.Dir()).Info("Using file settings store.")
		return fileStore, nil

	case BackendMemory:
		logrus.Info("Using in-memory settings store.")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

func newRedisFromDSN(dsn string) (Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("STORE_BACKEND=redis requires REDIS_DSN")
	}

	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis DSN: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logrus.Info("Successfully connected to Redis.")
	return NewRedisStore(client), nil
}
