package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewPositionBounds(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"los angeles", 34.05, -118.25, false},
		{"north pole", 90, 0, false},
		{"antimeridian", 0, -180, false},
		{"lat too high", 90.0001, 0, true},
		{"lat too low", -91, 0, true},
		{"lon too high", 0, 180.5, true},
		{"nan lat", math.NaN(), 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPosition("TRK-01", tc.lat, tc.lon, "", now)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPosition) {
					t.Fatalf("expected ErrInvalidPosition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !p.ObservedAt.Equal(now) || !p.FetchedAt.Equal(now) {
				t.Errorf("expected timestamps %v, got observed=%v fetched=%v", now, p.ObservedAt, p.FetchedAt)
			}
		})
	}
}

func TestCacheEntryFreshness(t *testing.T) {
	stored := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	p, err := NewPosition("TRK-01", 1, 2, "", stored)
	if err != nil {
		t.Fatalf("NewPosition failed: %v", err)
	}
	e := NewCacheEntry(p)

	soft := 5 * time.Minute
	hard := 24 * time.Hour

	if !e.IsSoftFresh(stored.Add(4*time.Minute), soft) {
		t.Errorf("expected soft-fresh at 4m")
	}
	if e.IsSoftFresh(stored.Add(soft), soft) {
		t.Errorf("expected not soft-fresh exactly at soft ttl")
	}
	if !e.IsHardFresh(stored.Add(23*time.Hour), hard) {
		t.Errorf("expected hard-fresh at 23h")
	}
	if e.IsHardFresh(stored.Add(25*time.Hour), hard) {
		t.Errorf("expected not hard-fresh at 25h")
	}
}

func TestNewCacheEntryIsIdempotent(t *testing.T) {
	now := time.Now()
	p, _ := NewPosition("TRK-01", 10, 20, "", now)
	if NewCacheEntry(p) != NewCacheEntry(p) {
		t.Errorf("expected identical entries for identical positions")
	}
}
