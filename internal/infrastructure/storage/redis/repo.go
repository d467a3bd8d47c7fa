package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

// Repo keeps one JSON blob per asset in a single hash. Keys carry no TTL:
// staleness is decided by the resolver, not by Redis expiry.
type Repo struct {
	rdb         *redis.Client
	prefix      string
	keyLatest   string // prefix + ":positions"
	updatesChan string
}

type storedPosition struct {
	AssetID    string    `json:"asset_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	FixTime    string    `json:"fix_time,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	FetchedAt  time.Time `json:"fetched_at"`
	StoredAt   time.Time `json:"stored_at"`
}

// New builds a repo on an existing client. A non-empty updatesChan publishes
// every accepted position on that channel.
func New(rdb *redis.Client, prefix, updatesChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "whereis"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		keyLatest:   prefix + ":positions",
		updatesChan: strings.TrimSpace(updatesChan),
	}
}

func (r *Repo) Get(ctx context.Context, assetID string) (domain.CacheEntry, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.keyLatest, assetID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}

	var sp storedPosition
	if err := json.Unmarshal([]byte(raw), &sp); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("decode cached position %s: %w", assetID, err)
	}
	return domain.CacheEntry{
		Position: domain.Position{
			AssetID:    sp.AssetID,
			Latitude:   sp.Lat,
			Longitude:  sp.Lon,
			FixTime:    sp.FixTime,
			ObservedAt: sp.ObservedAt,
			FetchedAt:  sp.FetchedAt,
		},
		StoredAt: sp.StoredAt,
	}, true, nil
}

func (r *Repo) Put(ctx context.Context, assetID string, pos domain.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	e := domain.NewCacheEntry(pos)
	b, err := json.Marshal(storedPosition{
		AssetID:    pos.AssetID,
		Lat:        pos.Latitude,
		Lon:        pos.Longitude,
		FixTime:    pos.FixTime,
		ObservedAt: pos.ObservedAt.UTC(),
		FetchedAt:  pos.FetchedAt.UTC(),
		StoredAt:   e.StoredAt.UTC(),
	})
	if err != nil {
		return err
	}

	if r.updatesChan == "" {
		return r.rdb.HSet(ctx, r.keyLatest, assetID, string(b)).Err()
	}

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, assetID, string(b))
	pipe.Publish(ctx, r.updatesChan, string(b))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) Close() error { return nil }

var _ port.PositionCache = (*Repo)(nil)
