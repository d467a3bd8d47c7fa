package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

// Source tells where a resolved position came from.
type Source int

const (
	SourceNone     Source = iota // no position known
	SourceUpstream               // fetched from the provider during this call
	SourceCache                  // soft-fresh cache hit, provider not contacted
	SourceStale                  // hard-fresh cache served because the provider had nothing usable
)

func (s Source) String() string {
	switch s {
	case SourceUpstream:
		return "fresh"
	case SourceCache:
		return "cache"
	case SourceStale:
		return "stale"
	default:
		return "none"
	}
}

// Resolution is the result of one lookup. When Found is false the caller
// should report that no position is known (NoDataAvailable).
type Resolution struct {
	AssetID  string
	Found    bool
	Position domain.Position
	Source   Source

	// Upstream is the provider outcome; meaningful only if UpstreamCalled.
	Upstream       domain.OutcomeKind
	UpstreamCalled bool
}

// Stale reports whether the position may be older than the provider's current fix.
func (r Resolution) Stale() bool { return r.Source == SourceStale }

// RateLimited reports a throttled provider with nothing cached to fall back on.
func (r Resolution) RateLimited() bool {
	return !r.Found && r.UpstreamCalled && r.Upstream == domain.OutcomeRateLimited
}

// Recorder receives resolution and upstream observations. May be nil.
type Recorder interface {
	ObserveResolution(source string)
	ObserveUpstream(outcome string, elapsed time.Duration)
}

type Policy struct {
	SoftTTL time.Duration
	HardTTL time.Duration
}

type ResolverDeps struct {
	Cache    port.PositionCache
	Source   port.PositionSource
	Policy   Policy
	Recorder Recorder
}

type Resolver struct {
	cache    port.PositionCache
	source   port.PositionSource
	policy   Policy
	recorder Recorder
}

func NewResolver(deps ResolverDeps) *Resolver {
	return &Resolver{
		cache:    deps.Cache,
		source:   deps.Source,
		policy:   deps.Policy,
		recorder: deps.Recorder,
	}
}

// Resolve returns the best known position for assetID at now. A soft-fresh
// cache entry short-circuits the provider; on any provider failure a
// hard-fresh entry is served instead of reporting no data.
func (r *Resolver) Resolve(ctx context.Context, assetID string, now time.Time) Resolution {
	res := r.resolve(ctx, assetID, now)
	if r.recorder != nil {
		r.recorder.ObserveResolution(res.Source.String())
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, assetID string, now time.Time) Resolution {
	res := Resolution{AssetID: assetID}

	entry, found := r.lookup(ctx, assetID)
	if found && entry.IsSoftFresh(now, r.policy.SoftTTL) {
		res.Found = true
		res.Position = entry.Position
		res.Source = SourceCache
		return res
	}

	start := time.Now()
	outcome := r.source.QueryLatest(ctx, assetID)
	if outcome.Kind == domain.OutcomeOK {
		if err := outcome.Position.Validate(); err != nil {
			outcome = domain.NoData(err)
		}
	}
	if r.recorder != nil {
		r.recorder.ObserveUpstream(outcome.Kind.String(), time.Since(start))
	}
	res.UpstreamCalled = true
	res.Upstream = outcome.Kind

	if outcome.Kind == domain.OutcomeOK {
		if err := r.cache.Put(ctx, assetID, outcome.Position); err != nil {
			log.Warn().Err(err).Str("asset", assetID).Msg("position cache write failed")
		}
		res.Found = true
		res.Position = outcome.Position
		res.Source = SourceUpstream
		return res
	}

	ev := log.Debug().Str("asset", assetID).Str("outcome", outcome.Kind.String())
	if outcome.Err != nil {
		ev = ev.Err(outcome.Err)
	}
	ev.Msg("upstream returned no usable fix")

	// Re-read: a concurrent resolution may have stored a newer fix while the
	// provider call was in flight.
	if latest, ok := r.lookup(ctx, assetID); ok {
		entry, found = latest, true
	}
	switch {
	case !found:
	case entry.IsSoftFresh(now, r.policy.SoftTTL):
		res.Found = true
		res.Position = entry.Position
		res.Source = SourceCache
	case entry.IsHardFresh(now, r.policy.HardTTL):
		res.Found = true
		res.Position = entry.Position
		res.Source = SourceStale
	}
	return res
}

func (r *Resolver) lookup(ctx context.Context, assetID string) (domain.CacheEntry, bool) {
	entry, found, err := r.cache.Get(ctx, assetID)
	if err != nil {
		log.Warn().Err(err).Str("asset", assetID).Msg("position cache read failed, treating as miss")
		return domain.CacheEntry{}, false
	}
	return entry, found
}
