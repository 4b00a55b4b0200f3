package storage

import (
	"bytes"
	"context"
	"slices"
	"sync"
)

type cachedValue struct {
	value   []byte
	deleted bool
}

// Cache buffers writes on top of a parent Store until Write is called.
// Dropping a Cache discards its writes. Caches nest: a Cache can be the parent
// of another Cache.
type Cache struct {
	parent Store

	mu      sync.Mutex
	pending map[string]cachedValue
}

func NewCache(parent Store) *Cache {
	return &Cache{parent: parent, pending: make(map[string]cachedValue)}
}

func (c *Cache) Get(ctx context.Context, key []byte) ([]byte, error) {
	c.mu.Lock()
	v, ok := c.pending[string(key)]
	c.mu.Unlock()
	if ok {
		if v.deleted {
			return nil, ErrNotFound
		}
		return bytes.Clone(v.value), nil
	}
	return c.parent.Get(ctx, key)
}

func (c *Cache) Set(_ context.Context, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[string(key)] = cachedValue{value: bytes.Clone(value)}
	return nil
}

func (c *Cache) Delete(_ context.Context, key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[string(key)] = cachedValue{deleted: true}
	return nil
}

func (c *Cache) Apply(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		var err error
		if op.IsDelete() {
			err = c.Delete(ctx, op.Key)
		} else {
			err = c.Set(ctx, op.Key, op.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Ops returns the buffered writes ordered by key.
func (c *Cache) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		v := c.pending[k]
		op := Op{Key: []byte(k)}
		if !v.deleted {
			op.Value = v.value
		}
		ops = append(ops, op)
	}
	return ops
}

// Write flushes the buffered writes into the parent in one batch and resets
// the cache.
func (c *Cache) Write(ctx context.Context) error {
	if err := Apply(ctx, c.parent, c.Ops()); err != nil {
		return err
	}
	c.mu.Lock()
	c.pending = make(map[string]cachedValue)
	c.mu.Unlock()
	return nil
}
