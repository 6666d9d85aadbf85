// Package tile maps coordinates to Web Mercator tiles and filters OSM
// objects against a set of tiles.
package tile

import (
	"fmt"
	"math"
)

// MaxZoom is the highest supported zoom level
const MaxZoom = 30

// Web Mercator latitude cut-offs; anything beyond goes to the edge rows
const (
	MaxMercatorLat = 85.0511
	MinMercatorLat = -85.0511
)

// Tile is a map tile at a specific zoom level
type Tile struct {
	Z uint32 // Zoom level
	X uint32 // Column
	Y uint32 // Row
}

// String returns the tile in z/x/y format
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Less orders tiles by zoom, then x, then y
func (t Tile) Less(o Tile) bool {
	if t.Z != o.Z {
		return t.Z < o.Z
	}
	if t.X != o.X {
		return t.X < o.X
	}
	return t.Y < o.Y
}

// Of converts latitude/longitude to the tile containing it at zoom, using the
// standard slippy map scheme. It never fails: out-of-range and NaN input is
// clamped onto the grid.
func Of(lat, lon float64, zoom uint32) Tile {
	n := float64(uint64(1) << zoom)

	x := clamp(math.Floor(n*((lon+180)/360)), n)

	var y float64
	switch {
	case lat >= MaxMercatorLat:
		y = 0
	case lat <= MinMercatorLat:
		y = n - 1
	default:
		latRad := lat * math.Pi / 180
		y = clamp(math.Floor(n*(1-math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi)/2), n)
	}

	return Tile{Z: zoom, X: uint32(x), Y: uint32(y)}
}

func clamp(v, n float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
