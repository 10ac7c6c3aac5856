package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	dom "tasktracker/internal/domain"
)

const keyPrefix = "tasks:"

// TaskCache caches per-owner task lists in Redis.
// Keys: tasks:<owner>:list:<filter>. Every write for an owner drops all of them.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached list or nil if miss.
func (c *TaskCache) GetList(ctx context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error) {
	b, err := c.rdb.Get(ctx, ListKey(ownerID, f)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := make([]dom.Task, 0)
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores the list in cache.
func (c *TaskCache) SetList(ctx context.Context, ownerID string, f dom.ListFilter, list []dom.Task) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, ListKey(ownerID, f), b, c.ttl).Err()
}

// InvalidateOwner removes every cached list of the owner (cache invalidation on write).
func (c *TaskCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+escapeGlob(ownerID)+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ListKey is the Redis key holding one filtered list of an owner.
func ListKey(ownerID string, f dom.ListFilter) string {
	completed := "any"
	if f.Completed != nil {
		completed = strconv.FormatBool(*f.Completed)
	}
	order := f.Order
	if order == "" {
		order = dom.OrderInsertion
	}
	// The query is kept verbatim: it must be exactly what the repo filters on.
	return ownerPrefix(ownerID) + "list:" + completed + ":" + string(order) + ":" + f.Query
}

func ownerPrefix(ownerID string) string {
	return keyPrefix + ownerID + ":"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
