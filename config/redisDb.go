package config

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisStore is an optional cache + lock provider. A nil *RedisStore (or one
// whose connection failed) is safe to use: every method degrades to a no-op
// so the service keeps working without redis.
type RedisStore struct {
	client *redis.Client
	locker *redislock.Client
}

// ConnectRedis dials redis once. On failure it logs and returns a degraded
// store rather than blocking startup; callers keep their handle either way.
func ConnectRedis() *RedisStore {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
		log.Printf("REDIS_ADDRESS not set; defaulting to %s", redisAddr)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
		PoolSize: 100,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("failed to connect redis (addr=%s): %v; continuing without redis", redisAddr, err)
		return &RedisStore{}
	}
	log.Printf("connected to redis (addr=%s)", redisAddr)
	return &RedisStore{client: client, locker: redislock.New(client)}
}

// Locker returns the redislock client, or nil when redis is unavailable.
func (r *RedisStore) Locker() *redislock.Client {
	if r == nil {
		return nil
	}
	return r.locker
}

// GetObject unmarshals the cached value into dest.
// Returns (false, nil) when the key does not exist or redis is unavailable.
func (r *RedisStore) GetObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) SetObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if r == nil || r.client == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, objInByte, exp).Err()
}

func (r *RedisStore) RemoveKey(ctx context.Context, keys ...string) error {
	if r == nil || r.client == nil {
		return nil
	}
	_, err := r.client.Del(ctx, keys...).Result()
	return err
}

func (r *RedisStore) Close() {
	if r == nil || r.client == nil {
		return
	}
	_ = r.client.Close()
}
