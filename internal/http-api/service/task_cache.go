package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskhub/internal/http-api/models"
)

const taskCacheTTL = 60 * time.Second

// cachedTaskList is what actually lives in redis for a list query.
type cachedTaskList struct {
	Tasks []models.Task `json:"tasks"`
	Total int64         `json:"total"`
}

// TaskCache is a redis read cache for task listings. Each user has a
// version counter bumped on every write; list keys embed the version, so a
// write invalidates every cached listing for that user without key scans.
// A nil *TaskCache is a valid no-op cache.
type TaskCache struct {
	client *redis.Client
}

// NewTaskCache connects to redis at the given URL. An empty URL yields a
// nil cache, which disables caching entirely.
func NewTaskCache(redisURL string) (*TaskCache, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &TaskCache{client: rdb}, nil
}

// GetList returns the cached listing for the query signature, if present.
func (c *TaskCache) GetList(ctx context.Context, userID, querySig string) ([]models.Task, int64, bool) {
	if c == nil || c.client == nil {
		return nil, 0, false
	}

	key, err := c.listKey(ctx, userID, querySig)
	if err != nil {
		return nil, 0, false
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, 0, false
	}

	var cached cachedTaskList
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, 0, false
	}
	return cached.Tasks, cached.Total, true
}

// SetList stores a listing result. Failures are swallowed: the cache is an
// optimization, never a source of errors for the caller.
func (c *TaskCache) SetList(ctx context.Context, userID, querySig string, tasks []models.Task, total int64) {
	if c == nil || c.client == nil {
		return
	}

	key, err := c.listKey(ctx, userID, querySig)
	if err != nil {
		return
	}

	payload, err := json.Marshal(cachedTaskList{Tasks: tasks, Total: total})
	if err != nil {
		return
	}
	c.client.Set(ctx, key, payload, taskCacheTTL)
}

// Invalidate bumps the user's version counter, orphaning every cached
// listing for that user. Orphaned keys age out via TTL.
func (c *TaskCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, fmt.Sprintf("tasks:ver:%s", userID))
}

func (c *TaskCache) listKey(ctx context.Context, userID, querySig string) (string, error) {
	ver, err := c.client.Get(ctx, fmt.Sprintf("tasks:ver:%s", userID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("tasks:list:%s:%d:%s", userID, ver, querySig), nil
}
