package cache

import (
	"context"
	"errors"
	"time"

	"github.com/parleychat/parley/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ChannelCache caches channel lookups in front of the chat repository.
// It is an optimization only; the repository stays authoritative.
type ChannelCache interface {
	Get(ctx context.Context, channelID string) (*domain.Channel, error)
	Set(ctx context.Context, channel *domain.Channel, ttl time.Duration) error
	Delete(ctx context.Context, channelID string) error
	Close() error
}
