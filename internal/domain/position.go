package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPosition marks a fix whose coordinates are outside WGS84 bounds.
var ErrInvalidPosition = errors.New("invalid position")

// Position is the last accepted fix for one asset.
type Position struct {
	AssetID    string    `json:"asset_id"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	FixTime    string    `json:"fix_time,omitempty"` // vendor display string, not parsed
	ObservedAt time.Time `json:"observed_at"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// NewPosition builds a Position accepted at now, or returns ErrInvalidPosition.
func NewPosition(assetID string, lat, lon float64, fixTime string, now time.Time) (Position, error) {
	p := Position{
		AssetID:    assetID,
		Latitude:   lat,
		Longitude:  lon,
		FixTime:    fixTime,
		ObservedAt: now,
		FetchedAt:  now,
	}
	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (p Position) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidPosition, p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidPosition, p.Longitude)
	}
	return nil
}

// CacheEntry holds the cached position of an asset and when it was stored.
type CacheEntry struct {
	Position Position
	StoredAt time.Time
}

// NewCacheEntry stamps the entry with the position's fetch time so that
// writing the same position twice yields the same entry.
func NewCacheEntry(p Position) CacheEntry {
	return CacheEntry{Position: p, StoredAt: p.FetchedAt}
}

func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// IsSoftFresh reports whether the entry can be served without asking the provider.
func (e CacheEntry) IsSoftFresh(now time.Time, softTTL time.Duration) bool {
	return e.Age(now) < softTTL
}

// IsHardFresh reports whether the entry is still good enough as a fallback.
func (e CacheEntry) IsHardFresh(now time.Time, hardTTL time.Duration) bool {
	return e.Age(now) < hardTTL
}
