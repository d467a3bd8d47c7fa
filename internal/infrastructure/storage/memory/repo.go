package memory

import (
	"context"
	"sync"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

// Repo is a process-local position cache. Contents are lost on restart.
type Repo struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

func New() *Repo {
	return &Repo{entries: make(map[string]domain.CacheEntry)}
}

func (r *Repo) Get(ctx context.Context, assetID string) (domain.CacheEntry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[assetID]
	return e, ok, nil
}

func (r *Repo) Put(ctx context.Context, assetID string, pos domain.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[assetID] = domain.NewCacheEntry(pos)
	r.mu.Unlock()
	return nil
}

func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Repo) Close() error { return nil }

var _ port.PositionCache = (*Repo)(nil)
