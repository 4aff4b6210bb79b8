package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemyke/node-backend-sub000/logging/logger"
)

// ICache defines a general caching interface. Get returns nil, nil on a miss.
type ICache[T any] interface {
	Get(context.Context, string) (*T, error)
	Set(context.Context, string, *T, ...time.Duration) error
	Delete(context.Context, string) error
}

// Cache implements ICache on Redis
type Cache[T any] struct {
	rc      redis.Cmdable
	key     string
	useHash bool
}

// Key joins the cache namespace and a field
func Key(namespace, field string) string {
	if namespace == "" {
		return field
	}
	return fmt.Sprintf("%s:%s", namespace, field)
}

// NewCache creates a new Cache instance. With useHash every field lives in
// one Redis hash named key; otherwise key is a prefix of plain string keys.
func NewCache[T any](rc redis.Cmdable, key string, useHash ...bool) *Cache[T] {
	hash := false
	if len(useHash) > 0 {
		hash = useHash[0]
	}
	return &Cache[T]{rc: rc, key: key, useHash: hash}
}

func (c *Cache[T]) disabled(ctx context.Context, op string) bool {
	if c.rc == nil {
		logger.Debugf(ctx, "redis client is nil, skipping %s operation", op)
		return true
	}
	return false
}

// Get retrieves a single item from cache
func (c *Cache[T]) Get(ctx context.Context, field string) (*T, error) {
	if c.disabled(ctx, "Get") {
		return nil, nil
	}

	var result string
	var err error

	if c.useHash {
		result, err = c.rc.HGet(ctx, c.key, field).Result()
	} else {
		result, err = c.rc.Get(ctx, Key(c.key, field)).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var row T
	if err = json.Unmarshal([]byte(result), &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &row, nil
}

// Set saves a single item into cache. Hash entries never expire.
func (c *Cache[T]) Set(ctx context.Context, field string, data *T, expire ...time.Duration) error {
	if c.disabled(ctx, "Set") {
		return nil
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if c.useHash {
		err = c.rc.HSet(ctx, c.key, field, bytes).Err()
	} else {
		exp := time.Duration(0)
		if len(expire) > 0 {
			exp = expire[0]
		}
		err = c.rc.Set(ctx, Key(c.key, field), bytes, exp).Err()
	}

	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete removes data from cache
func (c *Cache[T]) Delete(ctx context.Context, field string) error {
	if c.disabled(ctx, "Delete") {
		return nil
	}

	var err error
	if c.useHash {
		err = c.rc.HDel(ctx, c.key, field).Err()
	} else {
		err = c.rc.Del(ctx, Key(c.key, field)).Err()
	}

	if err != nil {
		logger.Warnf(ctx, "failed to delete cache field %s: %v", field, err)
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// Memory implements ICache in process memory
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
	now     func() time.Time
}

type memoryEntry[T any] struct {
	value   T
	expires time.Time
}

// NewMemory creates an empty in-memory cache
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{entries: make(map[string]memoryEntry[T]), now: time.Now}
}

// Get retrieves a single item from cache
func (m *Memory[T]) Get(_ context.Context, field string) (*T, error) {
	m.mu.RLock()
	e, ok := m.entries[field]
	m.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && m.now().After(e.expires)) {
		return nil, nil
	}
	v := e.value
	return &v, nil
}

// Set saves a single item into cache
func (m *Memory[T]) Set(_ context.Context, field string, data *T, expire ...time.Duration) error {
	if data == nil {
		return errors.New("cache value is nil")
	}
	e := memoryEntry[T]{value: *data}
	if len(expire) > 0 && expire[0] > 0 {
		e.expires = m.now().Add(expire[0])
	}
	m.mu.Lock()
	m.entries[field] = e
	m.mu.Unlock()
	return nil
}

// Delete removes data from cache
func (m *Memory[T]) Delete(_ context.Context, field string) error {
	m.mu.Lock()
	delete(m.entries, field)
	m.mu.Unlock()
	return nil
}
