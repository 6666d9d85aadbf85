package tile

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/osm2geojson-go/internal/geom"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
)

// Filter decides whether an object touches any tile of Set at Zoom. With an
// empty set every object is relevant and locations are not inspected.
type Filter struct {
	Set  *Set
	Zoom uint32
}

// Active reports whether the filter restricts anything
func (f *Filter) Active() bool {
	return f != nil && !f.Set.Empty()
}

func (f *Filter) contains(lat, lon float64) bool {
	return f.Set.Contains(Of(lat, lon, f.Zoom))
}

// NodeRelevant reports whether loc falls inside the set
func (f *Filter) NodeRelevant(loc locations.Location) (bool, error) {
	if !f.Active() {
		return true, nil
	}
	if !loc.Valid() {
		return false, geom.InvalidLocation(loc)
	}
	return f.contains(loc.Lat(), loc.Lon()), nil
}

// WayRelevant reports whether any vertex falls inside the set. An invalid
// vertex seen before the first match is an error.
func (f *Filter) WayRelevant(locs []locations.Location) (bool, error) {
	if !f.Active() {
		return true, nil
	}
	for _, loc := range locs {
		if !loc.Valid() {
			return false, geom.InvalidLocation(loc)
		}
		if f.contains(loc.Lat(), loc.Lon()) {
			return true, nil
		}
	}
	return false, nil
}

// AreaRelevant reports whether any ring vertex of mp falls inside the set
func (f *Filter) AreaRelevant(mp orb.MultiPolygon) bool {
	if !f.Active() {
		return true
	}
	for _, poly := range mp {
		for _, ring := range poly {
			for _, p := range ring {
				if f.contains(p.Lat(), p.Lon()) {
					return true
				}
			}
		}
	}
	return false
}
