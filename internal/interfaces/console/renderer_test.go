package console

import (
	"strings"
	"testing"
	"time"

	"whereis/internal/application/service"
	"whereis/internal/domain"
)

func TestRenderLinesPlain(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := service.Resolution{
		AssetID: "TRK-01",
		Found:   true,
		Source:  service.SourceStale,
		Position: domain.Position{
			AssetID: "TRK-01", Latitude: 34.05, Longitude: -118.25,
			FetchedAt: now.Add(-90 * time.Minute),
		},
	}

	lines := NewRenderer(false).RenderLines(res, nil, now)
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	if lines[0] != "[stale] TRK-01: 34.050000, -118.250000" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "possibly stale (age 1h30m0s)") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestRenderLinesColorsBySource(t *testing.T) {
	tests := []struct {
		source service.Source
		found  bool
		color  string
	}{
		{service.SourceUpstream, true, ansiGreen},
		{service.SourceCache, true, ansiGreen},
		{service.SourceStale, true, ansiYellow},
		{service.SourceNone, false, ansiRed},
	}
	for _, tt := range tests {
		res := service.Resolution{AssetID: "TRK-01", Found: tt.found, Source: tt.source}
		lines := NewRenderer(true).RenderLines(res, nil, time.Now())
		want := Colorize("["+tt.source.String()+"]", tt.color)
		if !strings.HasPrefix(lines[0], want) {
			t.Errorf("%v: first line %q does not start with %q", tt.source, lines[0], want)
		}
	}
}
