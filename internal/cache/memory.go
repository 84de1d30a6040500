package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryKV — in-memory fallback на случай недоступного Redis
// и для детерминированных тестов: часы инжектируются через Now.
type MemoryKV struct {
	mu     sync.Mutex
	store  map[string]string
	expiry map[string]time.Time

	// Now подменяется в тестах; по умолчанию time.Now.
	Now func() time.Time
}

var _ KeyValue = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		store:  make(map[string]string),
		expiry: make(map[string]time.Time),
		Now:    time.Now,
	}
}

// dropExpired удаляет ключ, если его TTL прошёл. Вызывать под mu.
func (c *MemoryKV) dropExpired(key string) {
	if exp, ok := c.expiry[key]; ok && c.Now().After(exp) {
		delete(c.store, key)
		delete(c.expiry, key)
	}
}

func (c *MemoryKV) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropExpired(key)
	return c.store[key], nil
}

func (c *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
	if ttl > 0 {
		c.expiry[key] = c.Now().Add(ttl)
	} else {
		delete(c.expiry, key)
	}
	return nil
}

func (c *MemoryKV) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropExpired(key)
	n, _ := strconv.ParseInt(c.store[key], 10, 64)
	n++
	c.store[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *MemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store[key]; ok {
		c.expiry[key] = c.Now().Add(ttl)
	}
	return nil
}

func (c *MemoryKV) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
		delete(c.expiry, k)
	}
	return nil
}
