package service

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"whereis/internal/domain"
	"whereis/internal/domain/geo"
)

func TestMapLinkerLinks(t *testing.T) {
	l := NewMapLinker(MapOptions{
		ViewURL:  "https://www.google.com/maps",
		ImageURL: "https://imagery.example.com/MapServer/export",
		Zoom:     16,
		Width:    640,
		Height:   480,
	})
	p, err := domain.NewPosition("TRK-01", 34.05, -118.25, "", time.Now())
	if err != nil {
		t.Fatalf("NewPosition failed: %v", err)
	}

	links := l.Links(p)

	if !strings.HasPrefix(links.ViewURL, "https://www.google.com/maps?") {
		t.Errorf("unexpected view url: %s", links.ViewURL)
	}
	view, _ := url.Parse(links.ViewURL)
	if got := view.Query().Get("q"); got != "34.050000,-118.250000" {
		t.Errorf("unexpected q param: %s", got)
	}

	img, err := url.Parse(links.ImageURL)
	if err != nil {
		t.Fatalf("image url does not parse: %v", err)
	}
	q := img.Query()
	if q.Get("size") != "640,480" || q.Get("bboxSR") != "3857" || q.Get("f") != "image" {
		t.Errorf("unexpected image query: %v", q)
	}
	if parts := strings.Split(q.Get("bbox"), ","); len(parts) != 4 {
		t.Errorf("expected 4 bbox components, got %q", q.Get("bbox"))
	}
	if links.BBox != geo.BoundingBox(34.05, -118.25, 16, 640, 480) {
		t.Errorf("bbox does not match projector output: %+v", links.BBox)
	}
}
