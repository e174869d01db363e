package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gramforge/gramcast/config"
)

// BackendPool is the fixed, ordered set of quota-limited Redis backends the
// rotation controller points into. Each entry is a connection-pooled client;
// the set never changes after startup.
type BackendPool struct {
	clients []*redis.Client
}

// NewBackendPool builds one pooled client per configured backend. Entries
// with an empty URL are skipped; an empty resulting pool is a startup error.
func NewBackendPool(backends []config.BackendConfig) (*BackendPool, error) {
	clients := make([]*redis.Client, 0, len(backends))
	for i, b := range backends {
		if b.URL == "" {
			continue
		}
		opts, err := redis.ParseURL(b.URL)
		if err != nil {
			return nil, fmt.Errorf("backend %d: invalid URL: %w", i+1, err)
		}
		if b.Token != "" {
			opts.Password = b.Token
		}
		clients = append(clients, redis.NewClient(opts))
	}
	if len(clients) == 0 {
		return nil, errors.New("no valid Redis backends configured")
	}
	return &BackendPool{clients: clients}, nil
}

// Len reports the pool size.
func (p *BackendPool) Len() int {
	return len(p.clients)
}

// Client returns the backend at position i. Panics on out-of-range i, which
// cannot happen through the rotator.
func (p *BackendPool) Client(i int) *redis.Client {
	return p.clients[i]
}

// Close releases every backend's connection pool.
func (p *BackendPool) Close() error {
	var errs []error
	for _, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping checks reachability of the backend at position i.
func (p *BackendPool) Ping(ctx context.Context, i int) error {
	return p.clients[i].Ping(ctx).Err()
}
