// Package geo implements the spherical Web Mercator projection used by slippy
// map tiles and static map image services (EPSG:3857).
package geo

import "math"

const (
	// EarthRadius is the WGS84 semi-major axis in meters.
	EarthRadius = 6378137.0

	// MaxLatitude is the latitude where the projected map becomes square.
	MaxLatitude = 85.05112878

	TileSize = 256
)

// BBox is a projected bounding box in meters.
type BBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (b BBox) Width() float64  { return b.MaxX - b.MinX }
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

func (b BBox) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// ClampLatitude limits lat to the projection's valid range.
func ClampLatitude(lat float64) float64 {
	if lat > MaxLatitude {
		return MaxLatitude
	}
	if lat < -MaxLatitude {
		return -MaxLatitude
	}
	return lat
}

// ProjectPoint converts WGS84 degrees to Web Mercator meters.
func ProjectPoint(lat, lon float64) (x, y float64) {
	phi := ClampLatitude(lat) * math.Pi / 180
	lambda := lon * math.Pi / 180
	x = EarthRadius * lambda
	y = EarthRadius * math.Log(math.Tan(math.Pi/4+phi/2))
	return x, y
}

// Resolution returns ground meters per pixel at the given zoom level.
func Resolution(zoom int) float64 {
	return 2 * math.Pi * EarthRadius / (TileSize * math.Pow(2, float64(zoom)))
}

// BoundingBox returns the projected extent of a width x height pixel image
// centered on (lat, lon) at zoom.
func BoundingBox(lat, lon float64, zoom, width, height int) BBox {
	cx, cy := ProjectPoint(lat, lon)
	res := Resolution(zoom)
	halfW := float64(width) * res / 2
	halfH := float64(height) * res / 2
	return BBox{
		MinX: cx - halfW,
		MinY: cy - halfH,
		MaxX: cx + halfW,
		MaxY: cy + halfH,
	}
}
