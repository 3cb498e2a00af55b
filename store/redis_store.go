package store

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"skycast.app/config"
	"skycast.app/errors"
)

// RedisStore is a PersistentStore backed by Redis. Entries are written
// without a Redis-side TTL; staleness is the cache coordinator's concern,
// and an expired-but-present payload is still wanted for offline serving.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.NewStorageError("redis connection failed", err)
	}

	slog.Info("redis store connected", "addr", cfg.RedisAddr)

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Error("redis get error", "error", err, "key", key)
		}
		return nil, false
	}
	return val, true
}

func (s *RedisStore) Save(ctx context.Context, key string, blob []byte) error {
	if blob == nil {
		return nil
	}

	if err := s.client.Set(ctx, key, blob, 0).Err(); err != nil {
		return errors.NewStorageError("redis set failed", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.NewStorageError("redis delete failed", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return errors.NewStorageError("redis clear failed", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
