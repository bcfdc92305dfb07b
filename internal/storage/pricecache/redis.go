// Package pricecache caches price series and current prices for the market service.
package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

const keyPrefix = "copilot"

// RedisCache implements interfaces.PriceCache using Redis.
type RedisCache struct {
	client *redis.Client
	logger *common.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(cfg common.CacheConfig, logger *common.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Redis price cache connected")

	return &RedisCache{client: client, logger: logger}, nil
}

func seriesKey(key string) string {
	return keyPrefix + ":series:" + key
}

func priceKey(symbol string) string {
	return keyPrefix + ":price:" + symbol
}

// GetSeries returns nil, nil on a miss.
func (c *RedisCache) GetSeries(ctx context.Context, key string) ([]models.PriceBar, error) {
	data, err := c.client.Get(ctx, seriesKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get series: %w", err)
	}

	var bars []models.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		// A corrupt entry is treated as a miss
		c.logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached series")
		return nil, nil
	}
	return bars, nil
}

func (c *RedisCache) SetSeries(ctx context.Context, key string, bars []models.PriceBar, ttl time.Duration) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}
	if err := c.client.Set(ctx, seriesKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set series: %w", err)
	}
	return nil
}

func (c *RedisCache) GetPrice(ctx context.Context, symbol string) (float64, bool, error) {
	val, err := c.client.Get(ctx, priceKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get price: %w", err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, nil
	}
	return price, true, nil
}

func (c *RedisCache) SetPrice(ctx context.Context, symbol string, price float64, ttl time.Duration) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := c.client.Set(ctx, priceKey(symbol), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set price: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Compile-time check
var _ interfaces.PriceCache = (*RedisCache)(nil)
