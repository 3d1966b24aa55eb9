package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parleychat/parley/internal/domain"
)

// RedisConfig holds the Redis connection settings for the channel cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RedisChannelCache implements ChannelCache backed by Redis.
type RedisChannelCache struct {
	client *redis.Client
	prefix string
}

// NewRedisChannelCache connects to Redis and returns a channel cache.
func NewRedisChannelCache(cfg RedisConfig, prefix string) (*RedisChannelCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisChannelCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisChannelCache) key(channelID string) string {
	return fmt.Sprintf("%s:channel:%s", c.prefix, channelID)
}

// Get retrieves a cached channel, or ErrCacheMiss.
func (c *RedisChannelCache) Get(ctx context.Context, channelID string) (*domain.Channel, error) {
	data, err := c.client.Get(ctx, c.key(channelID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var channel domain.Channel
	if err := json.Unmarshal(data, &channel); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached channel: %w", err)
	}
	return &channel, nil
}

// Set stores a channel with the given TTL.
func (c *RedisChannelCache) Set(ctx context.Context, channel *domain.Channel, ttl time.Duration) error {
	data, err := json.Marshal(channel)
	if err != nil {
		return fmt.Errorf("failed to marshal channel: %w", err)
	}
	if err := c.client.Set(ctx, c.key(channel.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Delete evicts a channel entry.
func (c *RedisChannelCache) Delete(ctx context.Context, channelID string) error {
	return c.client.Del(ctx, c.key(channelID)).Err()
}

// Close closes the Redis client.
func (c *RedisChannelCache) Close() error {
	return c.client.Close()
}
