package database

import (
	"context"

	"github.com/golobby/database/internal/cache"
	"github.com/golobby/database/logging"
)

const defaultRegistrySize = 16

// Registry shares one driver per configuration. Every caller asking for an
// equal configuration gets the same *Driver, and a Driver allows one cursor at
// a time, so callers sharing a configuration must serialize their use of it.
// Drivers evicted from the registry are closed; a caller still holding one
// gets a ConnectionError from its next query. Log sinks are shared between
// drivers with equal log options.
type Registry struct {
	drivers *cache.Instances[*Driver]
	sinks   *logging.Cache
	opts    []Option
}

// NewRegistry creates a registry holding at most size drivers. opts are
// applied to every driver it opens.
func NewRegistry(size int, opts ...Option) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	drivers, err := cache.New[*Driver](size)
	if err != nil {
		return nil, err
	}
	sinks, err := logging.NewCache(size)
	if err != nil {
		return nil, err
	}
	return &Registry{drivers: drivers, sinks: sinks, opts: opts}, nil
}

// Get returns the driver for c, opening it on first use.
func (r *Registry) Get(ctx context.Context, c Config) (*Driver, error) {
	return r.drivers.Get(c.Signature(), func() (*Driver, error) {
		cfg := c
		opts := r.opts
		if cfg.Log != nil {
			sink, err := r.sinks.Get(*cfg.Log)
			if err != nil {
				return nil, err
			}
			adapter := logging.NewAdapter(sink, "database")
			if cfg.Debug {
				adapter.WithDebug()
			}
			opts = append([]Option{WithLogger(adapter)}, opts...)
			cfg.Log = nil
		}
		return Open(ctx, cfg, opts...)
	})
}

// Remove closes and forgets the driver for c.
func (r *Registry) Remove(c Config) {
	r.drivers.Remove(c.Signature())
}

func (r *Registry) Len() int {
	return r.drivers.Len()
}

// Close closes every driver and log sink.
func (r *Registry) Close() error {
	r.drivers.Purge()
	return r.sinks.Close()
}
