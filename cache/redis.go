package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"example.com/auctionhouse/services/indexer/config"
	"example.com/auctionhouse/services/indexer/models"
)

// CacheClient defines the interface for read-surface caching.
type CacheClient interface {
	GetStats(ctx context.Context) (*models.Stats, error)
	SetStats(ctx context.Context, stats *models.Stats) error

	GetAuction(ctx context.Context, lot string) (*models.Auction, error)
	SetAuction(ctx context.Context, auction *models.Auction) error

	// FlushAll clears the cache. Called after a full replay so stale
	// derived state never outlives the rebuild.
	FlushAll(ctx context.Context) error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisClient creates a new Redis client. When caching is disabled the
// client is a no-op and every Get misses.
func NewRedisClient(cfg config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}

	return &RedisClient{client: client, enabled: true, ttl: ttl}, nil
}

// ErrCacheMiss is returned when a key is absent or caching is disabled.
var ErrCacheMiss = redis.Nil

func (r *RedisClient) get(ctx context.Context, key string, out interface{}) error {
	if !r.enabled {
		return ErrCacheMiss
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (r *RedisClient) set(ctx context.Context, key string, value interface{}) error {
	if !r.enabled {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// GetStats returns the cached stats singleton.
func (r *RedisClient) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := r.get(ctx, "indexer:stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetStats caches the stats singleton.
func (r *RedisClient) SetStats(ctx context.Context, stats *models.Stats) error {
	return r.set(ctx, "indexer:stats", stats)
}

// GetAuction returns a cached auction.
func (r *RedisClient) GetAuction(ctx context.Context, lot string) (*models.Auction, error) {
	var auction models.Auction
	if err := r.get(ctx, "indexer:auction:"+lot, &auction); err != nil {
		return nil, err
	}
	return &auction, nil
}

// SetAuction caches an auction.
func (r *RedisClient) SetAuction(ctx context.Context, auction *models.Auction) error {
	return r.set(ctx, "indexer:auction:"+auction.Lot, auction)
}

// FlushAll clears the cache.
func (r *RedisClient) FlushAll(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	return r.client.FlushAll(ctx).Err()
}
