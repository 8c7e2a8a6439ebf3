package fec

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

type contextKey struct {
	data, parity int
}

// Cache hands out one shared Context per (data, parity) pair so the matrix
// is built once and reused for every frame with that shape.
type Cache struct {
	mu       sync.RWMutex
	contexts map[contextKey]*Context
	group    singleflight.Group
}

func NewCache() *Cache {
	return &Cache{contexts: make(map[contextKey]*Context)}
}

// Get returns the cached Context for the pair, building it on first use.
// Concurrent callers asking for the same missing pair share one build.
func (c *Cache) Get(dataShards, parityShards int) (*Context, error) {
	key := contextKey{dataShards, parityShards}
	c.mu.RLock()
	ctx, ok := c.contexts[key]
	c.mu.RUnlock()
	if ok {
		return ctx, nil
	}

	v, err, _ := c.group.Do(strconv.Itoa(dataShards)+"+"+strconv.Itoa(parityShards), func() (interface{}, error) {
		c.mu.RLock()
		ctx, ok := c.contexts[key]
		c.mu.RUnlock()
		if ok {
			return ctx, nil
		}
		ctx, err := NewContext(dataShards, parityShards)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.contexts[key] = ctx
		c.mu.Unlock()
		return ctx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Context), nil
}

// Release drops the cached Context for the pair. Callers still holding it
// may keep using it; the next Get builds a fresh one.
func (c *Cache) Release(dataShards, parityShards int) {
	c.mu.Lock()
	delete(c.contexts, contextKey{dataShards, parityShards})
	c.mu.Unlock()
}

// Len returns the number of cached contexts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.contexts)
}
