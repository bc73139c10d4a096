// Package cache keeps a short-lived redis copy of the latest articles for
// the ops API. The ingestion loop only ever invalidates it; reads and
// refills happen on the serving path. A nil *Cache is a valid, disabled
// cache, so callers never need to branch on whether redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/codewith-lab/forexfeed/models"
)

const (
	articlesKey = "articles"
	articlesTTL = 10 * time.Minute
)

type Cache struct {
	client *redis.Client
}

func New(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// GetLatest returns the cached article list, or ok=false on miss, error
// or when the cache is disabled.
func (c *Cache) GetLatest(ctx context.Context) ([]models.NewsRecord, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, articlesKey).Result()
	if err != nil {
		return nil, false
	}
	var records []models.NewsRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *Cache) SetLatest(ctx context.Context, records []models.NewsRecord) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, articlesKey, data, articlesTTL).Err()
}

// Invalidate drops the cached list so the next read reflects fresh
// inserts. Failures are ignored: the entry expires on its own.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, articlesKey).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
