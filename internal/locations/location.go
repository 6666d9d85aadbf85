package locations

import (
	"encoding/binary"
	"math"
)

const (
	// coordinatePrecision is the fixed-point scale for lat/lon (7 decimal places)
	coordinatePrecision = 1e7

	// undefinedCoordinate marks a missing coordinate in both the in-memory
	// representation and the array dump layout
	undefinedCoordinate = math.MaxInt32

	// locationSize is the encoded size of a Location: x (int32) + y (int32)
	locationSize = 8
)

// Location is a node coordinate in fixed-point: X is lon*1e7, Y is lat*1e7.
type Location struct {
	X int32
	Y int32
}

// Undefined is the location of a node whose coordinate is unknown.
var Undefined = Location{X: undefinedCoordinate, Y: undefinedCoordinate}

// FromLatLon converts a WGS84 coordinate to a Location.
func FromLatLon(lat, lon float64) Location {
	return Location{X: toFixed(lon), Y: toFixed(lat)}
}

func toFixed(c float64) int32 {
	v := math.Round(c * coordinatePrecision)
	if math.IsNaN(v) || v >= undefinedCoordinate || v < math.MinInt32 {
		return undefinedCoordinate
	}
	return int32(v)
}

// Lat returns the latitude in degrees.
func (l Location) Lat() float64 {
	return float64(l.Y) / coordinatePrecision
}

// Lon returns the longitude in degrees.
func (l Location) Lon() float64 {
	return float64(l.X) / coordinatePrecision
}

// IsDefined reports whether the location was ever set.
func (l Location) IsDefined() bool {
	return l.X != undefinedCoordinate || l.Y != undefinedCoordinate
}

// Valid reports whether the location is inside the WGS84 coordinate range.
func (l Location) Valid() bool {
	return l.X >= -180*coordinatePrecision && l.X <= 180*coordinatePrecision &&
		l.Y >= -90*coordinatePrecision && l.Y <= 90*coordinatePrecision
}

// putLocation encodes l little-endian into b[0:8]
func putLocation(b []byte, l Location) {
	binary.LittleEndian.PutUint32(b[0:], uint32(l.X))
	binary.LittleEndian.PutUint32(b[4:], uint32(l.Y))
}

func readLocation(b []byte) Location {
	return Location{
		X: int32(binary.LittleEndian.Uint32(b[0:])),
		Y: int32(binary.LittleEndian.Uint32(b[4:])),
	}
}

// undefinedBytes is the encoded form of Undefined, used to fill new array space
var undefinedBytes = func() []byte {
	b := make([]byte, locationSize)
	putLocation(b, Undefined)
	return b
}()
