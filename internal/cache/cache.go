package cache

import (
	"context"
	"time"

	"salesledger/internal/domain"
)

// ChannelCache holds the channel list (discounts included) so order
// listing and report generation do not hit the store for every discount
// lookup. Cache misses and errors always fall through to the store.
type ChannelCache interface {
	Get(ctx context.Context, key string) ([]domain.SalesChannel, bool, error)
	Set(ctx context.Context, key string, channels []domain.SalesChannel, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopChannelCache struct{}

func (NoopChannelCache) Get(_ context.Context, _ string) ([]domain.SalesChannel, bool, error) {
	return nil, false, nil
}

func (NoopChannelCache) Set(_ context.Context, _ string, _ []domain.SalesChannel, _ time.Duration) error {
	return nil
}

func (NoopChannelCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}
