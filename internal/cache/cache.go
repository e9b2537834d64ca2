// Package cache keeps shared instances keyed by a configuration signature.
package cache

import (
	"io"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// Instances is a bounded, concurrency-safe cache of values built on demand.
// Concurrent requests for the same missing key share one construction, and
// values that implement io.Closer are closed when evicted or purged.
type Instances[V any] struct {
	lru   *lru.Cache
	group singleflight.Group
}

// New creates a cache holding at most size instances.
func New[V any](size int) (*Instances[V], error) {
	c, err := lru.NewWithEvict(size, func(_ interface{}, value interface{}) {
		if closer, ok := value.(io.Closer); ok {
			_ = closer.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return &Instances[V]{lru: c}, nil
}

// Get returns the instance stored under key, building it with build when absent.
// A failed build is not cached.
func (c *Instances[V]) Get(key string, build func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v.(V), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *Instances[V]) Peek(key string) (V, bool) {
	v, ok := c.lru.Peek(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Remove evicts key, closing its instance.
func (c *Instances[V]) Remove(key string) {
	c.lru.Remove(key)
}

func (c *Instances[V]) Len() int {
	return c.lru.Len()
}

// Purge evicts every instance.
func (c *Instances[V]) Purge() {
	c.lru.Purge()
}
