// Package geom builds orb geometries from resolved node locations.
package geom

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/wegman-software/osm2geojson-go/internal/locations"
)

var (
	// ErrGeometry means the object cannot form a valid geometry
	ErrGeometry = errors.New("geometry error")
	// ErrInvalidLocation means a node location is missing or out of range
	ErrInvalidLocation = errors.New("invalid location")
)

// Error kinds as written to the error side file
const (
	KindGeometry        = "geometry_error"
	KindInvalidLocation = "invalid_location"
)

// Kind maps an error to its side file name
func Kind(err error) string {
	if errors.Is(err, ErrInvalidLocation) {
		return KindInvalidLocation
	}
	return KindGeometry
}

// IsObjectError reports whether err only affects the object being built
// and processing can go on
func IsObjectError(err error) bool {
	return errors.Is(err, ErrGeometry) || errors.Is(err, ErrInvalidLocation)
}

// InvalidLocation returns an ErrInvalidLocation describing loc
func InvalidLocation(loc locations.Location) error {
	if !loc.IsDefined() {
		return fmt.Errorf("%w: undefined", ErrInvalidLocation)
	}
	return fmt.Errorf("%w: (%d, %d)", ErrInvalidLocation, loc.X, loc.Y)
}

// Point converts a valid location to an orb point
func Point(loc locations.Location) (orb.Point, error) {
	if !loc.Valid() {
		return orb.Point{}, InvalidLocation(loc)
	}
	return orb.Point{loc.Lon(), loc.Lat()}, nil
}

// Points converts locs to orb points, dropping consecutive duplicates
func Points(locs []locations.Location) ([]orb.Point, error) {
	out := make([]orb.Point, 0, len(locs))
	var prev locations.Location
	for i, loc := range locs {
		p, err := Point(loc)
		if err != nil {
			return nil, err
		}
		if i > 0 && loc == prev {
			continue
		}
		out = append(out, p)
		prev = loc
	}
	return out, nil
}

// LineString builds a line from way locations
func LineString(locs []locations.Location) (orb.LineString, error) {
	pts, err := Points(locs)
	if err != nil {
		return nil, err
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("%w: line needs at least 2 distinct points, got %d", ErrGeometry, len(pts))
	}
	return orb.LineString(pts), nil
}

// Ring builds a closed ring, dropping consecutive duplicates
func Ring(locs []locations.Location) (orb.Ring, error) {
	pts, err := Points(locs)
	if err != nil {
		return nil, err
	}
	ring := orb.Ring(pts)
	if len(ring) < 4 {
		return nil, fmt.Errorf("%w: ring needs at least 4 points, got %d", ErrGeometry, len(ring))
	}
	if !ring.Closed() {
		return nil, fmt.Errorf("%w: ring not closed", ErrGeometry)
	}
	return ring, nil
}

// Polygon builds a single-ring polygon from a closed way, oriented
// counter-clockwise
func Polygon(locs []locations.Location) (orb.Polygon, error) {
	ring, err := Ring(locs)
	if err != nil {
		return nil, err
	}
	if ring.Orientation() == orb.CW {
		ring.Reverse()
	}
	return orb.Polygon{ring}, nil
}
