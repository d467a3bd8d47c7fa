package service

import (
	"fmt"
	"net/url"
	"strconv"

	"whereis/internal/domain"
	"whereis/internal/domain/geo"
)

// MapLinks are the outbound links attached to a resolved position.
type MapLinks struct {
	ViewURL  string   `json:"view_url"`
	ImageURL string   `json:"image_url"`
	BBox     geo.BBox `json:"bbox"`
}

type MapOptions struct {
	ViewURL  string // e.g. https://www.google.com/maps
	ImageURL string // ArcGIS-style MapServer export endpoint
	Zoom     int
	Width    int
	Height   int
}

type MapLinker struct {
	opts MapOptions
}

func NewMapLinker(opts MapOptions) *MapLinker {
	return &MapLinker{opts: opts}
}

// Links builds a map view link for the coordinates and a satellite image
// request sized to the configured viewport.
func (l *MapLinker) Links(p domain.Position) MapLinks {
	bbox := geo.BoundingBox(p.Latitude, p.Longitude, l.opts.Zoom, l.opts.Width, l.opts.Height)

	view := url.Values{}
	view.Set("q", formatCoord(p.Latitude)+","+formatCoord(p.Longitude))

	img := url.Values{}
	img.Set("bbox", fmt.Sprintf("%s,%s,%s,%s",
		formatMeters(bbox.MinX), formatMeters(bbox.MinY), formatMeters(bbox.MaxX), formatMeters(bbox.MaxY)))
	img.Set("bboxSR", "3857")
	img.Set("imageSR", "3857")
	img.Set("size", fmt.Sprintf("%d,%d", l.opts.Width, l.opts.Height))
	img.Set("format", "png")
	img.Set("f", "image")

	return MapLinks{
		ViewURL:  l.opts.ViewURL + "?" + view.Encode(),
		ImageURL: l.opts.ImageURL + "?" + img.Encode(),
		BBox:     bbox,
	}
}

func formatCoord(v float64) string  { return strconv.FormatFloat(v, 'f', 6, 64) }
func formatMeters(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
