package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/semlayer/semlayer/internal/semantic"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Key is where the layer JSON is stored. Updates are announced on the channel of the same name.
	Key string
	// TTL expires the published layer. Zero keeps it forever.
	TTL time.Duration
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		Key:  "semlayer:layer",
	}
}

// RedisStore keeps the layer JSON under a Redis key
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewRedisStoreWithClient(client, config.Key, config.TTL), nil
}

// NewRedisStoreWithClient creates a store with an existing client
func NewRedisStoreWithClient(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisConfig().Key
	}
	return &RedisStore{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// Key returns the key the layer is stored under
func (s *RedisStore) Key() string {
	return s.key
}

// Publish stores the layer JSON and announces the update on the key's channel
func (s *RedisStore) Publish(ctx context.Context, layer *semantic.Layer) error {
	data, err := layer.ToJSON()
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store semantic layer: %w", err)
	}
	if err := s.client.Publish(ctx, s.key, "updated").Err(); err != nil {
		return fmt.Errorf("failed to announce semantic layer: %w", err)
	}
	return nil
}

// Fetch reads the published layer
func (s *RedisStore) Fetch(ctx context.Context) (*semantic.Layer, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: redis key %s", ErrNotFound, s.key)
		}
		return nil, fmt.Errorf("failed to fetch semantic layer: %w", err)
	}
	return semantic.FromJSON(data)
}

// Subscribe returns a subscription to update announcements. Callers close it.
func (s *RedisStore) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, s.key)
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
