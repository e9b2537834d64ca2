package logging

import (
	"github.com/golobby/database/internal/cache"
)

const defaultCacheSize = 32

// Cache shares one sink per option set. Sinks evicted from the cache are closed.
type Cache struct {
	sinks *cache.Instances[Sink]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := cache.New[Sink](size)
	if err != nil {
		return nil, err
	}
	return &Cache{sinks: c}, nil
}

// Get returns the sink for opts, creating it on first use.
func (c *Cache) Get(opts Options) (Sink, error) {
	return c.sinks.Get(opts.Signature(), func() (Sink, error) {
		return New(opts)
	})
}

// Close closes and drops every sink.
func (c *Cache) Close() error {
	c.sinks.Purge()
	return nil
}
