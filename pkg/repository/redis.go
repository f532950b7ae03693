package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/foodonbus/pkg/cart"
	"github.com/example/foodonbus/pkg/catalog"
	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/models"
	"github.com/go-redis/redis/v8"
)

// RedisCartStore keeps cart sessions as JSON values that expire after ttl.
type RedisCartStore struct {
	client  *redis.Client
	catalog *catalog.Catalog
	ttl     time.Duration
}

func NewRedisCartStore(cfg *config.RedisConfig, cat *catalog.Catalog, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		catalog: cat,
		ttl:     ttl,
	}
}

func (r *RedisCartStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCartStore) Close() error {
	return r.client.Close()
}

func cartKey(session string) string {
	return fmt.Sprintf("cart:%s", session)
}

func (r *RedisCartStore) Load(ctx context.Context, session string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(session)).Result()
	if errors.Is(err, redis.Nil) {
		return cart.New(r.catalog), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal([]byte(data), &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return cart.Restore(r.catalog, lines), nil
}

// Save refreshes the session ttl; an empty cart removes the key.
func (r *RedisCartStore) Save(ctx context.Context, session string, c *cart.Cart) error {
	if c.IsEmpty() {
		return r.Delete(ctx, session)
	}

	data, err := json.Marshal(c.Lines())
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(session), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *RedisCartStore) Delete(ctx context.Context, session string) error {
	if err := r.client.Del(ctx, cartKey(session)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
