package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "media:info:"

// ErrMiss is returned when no entry is cached for a URL
var ErrMiss = errors.New("cache miss")

// Entry is a cached info response
type Entry struct {
	Platform string           `json:"platform"`
	Info     models.MediaInfo `json:"info"`
}

// InfoCache stores info responses by source URL
type InfoCache interface {
	Get(ctx context.Context, url string) (*Entry, error)
	Set(ctx context.Context, url string, entry Entry) error
}

// RedisCache implements InfoCache on Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a ping
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig, log *logrus.Logger) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisCache(client, cfg.CacheTTL(), log), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration, log *logrus.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func key(url string) string {
	sum := sha1.Sum([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached entry for url or ErrMiss
func (c *RedisCache) Get(ctx context.Context, url string) (*Entry, error) {
	val, err := c.client.Get(ctx, key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// Set stores entry for url with the configured TTL
func (c *RedisCache) Set(ctx context.Context, url string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key(url), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"component": "cache",
		"url":       url,
		"ttl":       c.ttl,
	}).Debug("Cached media info")
	return nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
