package assembler

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/wegman-software/osm2geojson-go/internal/geom"
)

// assembleRings connects way segments into closed rings. Segments that
// cannot be closed are dropped.
func assembleRings(ways [][]orb.Point) []orb.Ring {
	var rings []orb.Ring
	used := make([]bool, len(ways))

	for start := range ways {
		if used[start] {
			continue
		}
		used[start] = true
		if len(ways[start]) < 2 {
			continue
		}

		ring := append(orb.Ring(nil), ways[start]...)

		// Keep connecting until the ring closes or nothing connects
		for !ring.Closed() {
			end := ring[len(ring)-1]
			found := false

			for i, w := range ways {
				if used[i] || len(w) < 2 {
					continue
				}

				// Start of way matches end of ring
				if w[0] == end {
					ring = append(ring, w[1:]...)
					used[i] = true
					found = true
					break
				}

				// End of way matches end of ring, append reversed
				if w[len(w)-1] == end {
					for j := len(w) - 2; j >= 0; j-- {
						ring = append(ring, w[j])
					}
					used[i] = true
					found = true
					break
				}
			}

			if !found {
				break
			}
		}

		if len(ring) >= 4 && ring.Closed() {
			rings = append(rings, ring)
		}
	}

	return rings
}

// ringContainedBy tests the first vertex of inner against outer
func ringContainedBy(inner, outer orb.Ring) bool {
	if len(inner) == 0 || len(outer) < 4 {
		return false
	}
	return planar.RingContains(outer, inner[0])
}

func orient(r orb.Ring, want orb.Orientation) {
	if r.Orientation() != want {
		r.Reverse()
	}
}

// buildMultiPolygon turns outer and inner member ways into a multipolygon.
// Each inner ring goes to the first outer ring containing it; inner rings
// outside every outer ring are dropped.
func buildMultiPolygon(outerWays, innerWays [][]orb.Point) (orb.MultiPolygon, error) {
	outers := assembleRings(outerWays)
	if len(outers) == 0 {
		return nil, fmt.Errorf("%w: no closed outer ring", geom.ErrGeometry)
	}
	inners := assembleRings(innerWays)

	mp := make(orb.MultiPolygon, 0, len(outers))
	usedInners := make([]bool, len(inners))

	for _, outer := range outers {
		orient(outer, orb.CCW)
		polygon := orb.Polygon{outer}
		for i, inner := range inners {
			if !usedInners[i] && ringContainedBy(inner, outer) {
				orient(inner, orb.CW)
				polygon = append(polygon, inner)
				usedInners[i] = true
			}
		}
		mp = append(mp, polygon)
	}

	return mp, nil
}
