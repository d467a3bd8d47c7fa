package composite

import (
	"context"
	"errors"
	"testing"
	"time"

	"whereis/internal/domain"
	"whereis/internal/infrastructure/storage/memory"
)

type brokenRepo struct{ err error }

func (b brokenRepo) Get(ctx context.Context, assetID string) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, b.err
}
func (b brokenRepo) Put(ctx context.Context, assetID string, pos domain.Position) error { return b.err }
func (b brokenRepo) Close() error                                                      { return nil }

func TestCompositeWritesAllReadsFirstHit(t *testing.T) {
	front, back := memory.New(), memory.New()
	repo := New(nil, front, back)
	ctx := context.Background()

	p, _ := domain.NewPosition("TRK-01", 1, 2, "", time.Now())
	if err := repo.Put(ctx, "TRK-01", p); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if front.Len() != 1 || back.Len() != 1 {
		t.Fatalf("expected write to every backend, got %d/%d", front.Len(), back.Len())
	}

	// Only the durable layer knows this asset, e.g. after a restart.
	q, _ := domain.NewPosition("TRK-02", 3, 4, "", time.Now())
	_ = back.Put(ctx, "TRK-02", q)

	e, ok, err := repo.Get(ctx, "TRK-02")
	if err != nil || !ok || e.Position != q {
		t.Errorf("expected fallthrough to second backend, got ok=%v err=%v e=%+v", ok, err, e)
	}
	if front.Len() != 2 {
		t.Errorf("expected hit to be copied into the front backend, front has %d", front.Len())
	}
	warmed, ok, _ := front.Get(ctx, "TRK-02")
	if !ok || !warmed.StoredAt.Equal(e.StoredAt) {
		t.Errorf("backfilled entry must keep its original stored time, got %+v", warmed)
	}
}

func TestCompositeToleratesBrokenBackend(t *testing.T) {
	boom := errors.New("connection refused")
	mem := memory.New()
	repo := New(brokenRepo{err: boom}, mem)
	ctx := context.Background()

	p, _ := domain.NewPosition("TRK-01", 1, 2, "", time.Now())
	if err := repo.Put(ctx, "TRK-01", p); !errors.Is(err, boom) {
		t.Errorf("expected first error to be reported, got %v", err)
	}
	if mem.Len() != 1 {
		t.Errorf("healthy backend must still receive the write")
	}

	e, ok, err := repo.Get(ctx, "TRK-01")
	if err != nil || !ok || e.Position != p {
		t.Errorf("expected hit from healthy backend, got ok=%v err=%v", ok, err)
	}

	if _, ok, err := repo.Get(ctx, "unknown"); ok || !errors.Is(err, boom) {
		t.Errorf("expected miss with backend error, got ok=%v err=%v", ok, err)
	}
}
