package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"savdo/backend/internal/domain"
)

type RedisRateCache struct {
	client *redis.Client
}

func NewRedisRateCache(addr string, password string, db int) *RedisRateCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRateCache{client: client}
}

func (c *RedisRateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRateCache) Close() error {
	return c.client.Close()
}

func (c *RedisRateCache) Get(ctx context.Context, currency string) (*domain.CurrencyRate, bool, error) {
	val, err := c.client.Get(ctx, rateKey(currency)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rate domain.CurrencyRate
	if err := json.Unmarshal([]byte(val), &rate); err != nil {
		return nil, false, err
	}
	return &rate, true, nil
}

func (c *RedisRateCache) Set(ctx context.Context, currency string, rate *domain.CurrencyRate, ttl time.Duration) error {
	if rate == nil {
		return nil
	}
	payload, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rateKey(currency), payload, ttl).Err()
}

func rateKey(currency string) string {
	return "rate:" + currency
}
