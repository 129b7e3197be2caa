package cache

import (
	"context"
	"time"
)

// NoOpCache is used when CACHE_PROVIDER=none or Redis is unavailable. All
// operations succeed and every lookup is a miss.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetReply(ctx context.Context, key string) (*Reply, error) {
	return nil, nil
}

func (c *NoOpCache) SetReply(ctx context.Context, key string, reply *Reply, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
