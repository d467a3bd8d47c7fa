package port

import (
	"context"

	"whereis/internal/domain"
)

// PositionCache stores the last accepted position per asset. Entries are
// never evicted by age; freshness is decided by the caller.
type PositionCache interface {
	// Get returns the entry for assetID; found is false when nothing is cached.
	Get(ctx context.Context, assetID string) (entry domain.CacheEntry, found bool, err error)

	// Put overwrites the entry for assetID. A single Put is atomic.
	Put(ctx context.Context, assetID string, pos domain.Position) error

	Close() error
}

// PositionSource queries the tracking provider for the latest fix of one asset.
type PositionSource interface {
	QueryLatest(ctx context.Context, assetID string) domain.Outcome
}
