package assembler

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osm2geojson-go/internal/geom"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
)

func loc(lon, lat float64) locations.Location {
	return locations.FromLatLon(lat, lon)
}

func way(id osm.WayID, tags osm.Tags, nodes ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id, Tags: tags, Version: 2}
	for _, n := range nodes {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: n})
	}
	return w
}

func multipolygon(id osm.RelationID, members ...osm.Member) *osm.Relation {
	return &osm.Relation{
		ID:      id,
		Version: 3,
		Tags:    osm.Tags{{Key: "type", Value: "multipolygon"}, {Key: "landuse", Value: "forest"}},
		Members: members,
	}
}

func member(ref int64, role string) osm.Member {
	return osm.Member{Type: osm.TypeWay, Ref: ref, Role: role}
}

type collector struct {
	areas []*Area
}

func (c *collector) emit(a *Area) { c.areas = append(c.areas, a) }

func TestRelationEmittedOnceWhenComplete(t *testing.T) {
	c := &collector{}
	a := New(Options{}, c.emit)

	rel := multipolygon(7, member(10, "outer"), member(11, "outer"), member(12, "inner"))
	require.True(t, a.Relation(rel))
	assert.True(t, a.IsMember(10))
	assert.Equal(t, []int64{7}, a.Pending())

	// two halves of a 10x10 square
	a.Way(way(10, nil, 1, 2, 3), []locations.Location{loc(0, 0), loc(10, 0), loc(10, 10)})
	assert.Empty(t, c.areas)
	a.Way(way(11, nil, 3, 4, 1), []locations.Location{loc(10, 10), loc(0, 10), loc(0, 0)})
	assert.Empty(t, c.areas)

	// inner square, clockwise already
	a.Way(way(12, nil, 5, 6, 7, 8, 5), []locations.Location{
		loc(2, 2), loc(2, 4), loc(4, 4), loc(4, 2), loc(2, 2),
	})
	require.Len(t, c.areas, 1)

	area := c.areas[0]
	require.NoError(t, area.Err)
	assert.Equal(t, int64(15), area.ID)
	assert.Equal(t, int64(7), area.OrigID)
	assert.False(t, area.FromWay)
	assert.Equal(t, "relation", area.ObjectType())
	assert.Equal(t, "forest", area.Tags.Find("landuse"))

	require.Len(t, area.Geometry, 1)
	poly := area.Geometry[0]
	require.Len(t, poly, 2)
	assert.Equal(t, orb.CCW, poly[0].Orientation())
	assert.Equal(t, orb.CW, poly[1].Orientation())
	assert.Len(t, poly[0], 5)

	// a repeated member does not emit again
	a.Way(way(12, nil, 5, 6, 7, 8, 5), nil)
	assert.Len(t, c.areas, 1)
	assert.Empty(t, a.Pending())
	assert.False(t, a.IsMember(10))
}

func TestRelationWithMissingLocation(t *testing.T) {
	c := &collector{}
	a := New(Options{}, c.emit)
	a.Relation(multipolygon(1, member(10, "outer")))

	a.Way(way(10, nil, 1, 2, 3, 1), []locations.Location{loc(0, 0), locations.Undefined, loc(1, 1), loc(0, 0)})
	require.Len(t, c.areas, 1)
	assert.ErrorIs(t, c.areas[0].Err, geom.ErrInvalidLocation)
	assert.Equal(t, 1, a.Stats().Failed)
}

func TestRelationWithoutClosedRing(t *testing.T) {
	c := &collector{}
	a := New(Options{}, c.emit)
	a.Relation(multipolygon(1, member(10, "outer")))

	a.Way(way(10, nil, 1, 2, 3), []locations.Location{loc(0, 0), loc(1, 0), loc(1, 1)})
	require.Len(t, c.areas, 1)
	assert.ErrorIs(t, c.areas[0].Err, geom.ErrGeometry)
}

func TestIgnoredRelations(t *testing.T) {
	a := New(Options{}, func(*Area) { t.Fatal("unexpected area") })

	route := &osm.Relation{ID: 1, Tags: osm.Tags{{Key: "type", Value: "route"}}, Members: osm.Members{member(1, "")}}
	assert.False(t, a.Relation(route))

	nodesOnly := multipolygon(2, osm.Member{Type: osm.TypeNode, Ref: 5})
	assert.False(t, a.Relation(nodesOnly))

	boundary := &osm.Relation{ID: 3, Tags: osm.Tags{{Key: "type", Value: "boundary"}}, Members: osm.Members{member(9, "outer")}}
	assert.True(t, a.Relation(boundary))
	assert.Equal(t, 1, a.Stats().Relations)
}

func TestWayAreas(t *testing.T) {
	square := []locations.Location{loc(0, 0), loc(0, 1), loc(1, 1), loc(1, 0), loc(0, 0)}
	building := osm.Tags{{Key: "building", Value: "yes"}}

	c := &collector{}
	a := New(Options{WayAreas: true}, c.emit)
	a.Relation(multipolygon(1, member(20, "outer")))

	a.Way(way(10, building, 1, 2, 3, 4, 1), square)
	require.Len(t, c.areas, 1)
	assert.True(t, c.areas[0].FromWay)
	assert.Equal(t, int64(20), c.areas[0].ID)
	assert.Equal(t, "way", c.areas[0].ObjectType())
	require.NoError(t, c.areas[0].Err)
	assert.Equal(t, orb.CCW, c.areas[0].Geometry[0][0].Orientation())

	// area=no, open, untagged: no way area
	a.Way(way(11, osm.Tags{{Key: "building", Value: "yes"}, {Key: "area", Value: "no"}}, 1, 2, 3, 4, 1), square)
	a.Way(way(12, building, 1, 2, 3, 4), square[:4])
	a.Way(way(13, nil, 1, 2, 3, 4, 1), square)
	assert.Len(t, c.areas, 1)

	// relation member emits the relation area, not a way area
	a.Way(way(20, building, 1, 2, 3, 4, 1), square)
	require.Len(t, c.areas, 2)
	assert.False(t, c.areas[1].FromWay)
}

func TestAssembleRingsReversesSegments(t *testing.T) {
	ways := [][]orb.Point{
		{{0, 0}, {1, 0}},
		{{1, 1}, {1, 0}}, // reversed
		{{1, 1}, {0, 1}, {0, 0}},
		{{5, 5}, {6, 6}}, // never closes
	}
	rings := assembleRings(ways)
	require.Len(t, rings, 1)
	assert.Equal(t, orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}, rings[0])
}

func TestInnerOutsideOuterDropped(t *testing.T) {
	outer := [][]orb.Point{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	inner := [][]orb.Point{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}}
	mp, err := buildMultiPolygon(outer, inner)
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.Len(t, mp[0], 1)
}
