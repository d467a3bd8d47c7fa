package composite

import (
	"context"

	"github.com/rs/zerolog/log"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

// Repo layers several caches: reads go to the first backend that has the
// asset, writes go to all of them. A hit in a later backend is copied into
// the earlier ones.
type Repo struct {
	repos []port.PositionCache
}

func New(repos ...port.PositionCache) *Repo {
	// nil entries are skipped
	out := make([]port.PositionCache, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Get(ctx context.Context, assetID string) (domain.CacheEntry, bool, error) {
	var firstErr error
	for i, repo := range r.repos {
		e, ok, err := repo.Get(ctx, assetID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			r.backfill(ctx, i, assetID, e.Position)
			return e, true, nil
		}
	}
	return domain.CacheEntry{}, false, firstErr
}

func (r *Repo) backfill(ctx context.Context, upTo int, assetID string, pos domain.Position) {
	for _, repo := range r.repos[:upTo] {
		if err := repo.Put(ctx, assetID, pos); err != nil {
			log.Debug().Err(err).Str("asset", assetID).Msg("cache backfill failed")
		}
	}
}

func (r *Repo) Put(ctx context.Context, assetID string, pos domain.Position) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Put(ctx, assetID, pos); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.PositionCache = (*Repo)(nil)
