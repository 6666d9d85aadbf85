// Package assembler builds areas from multipolygon relations and closed
// ways. Relations are registered in a first pass; ways are fed in a second
// pass and every area is handed to the emit callback as soon as its last
// member way has been seen.
package assembler

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/geom"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

// EmitFunc receives every assembled area exactly once
type EmitFunc func(*Area)

// Options control which areas are assembled
type Options struct {
	// WayAreas also emits areas for closed ways that are not relation members
	WayAreas bool
}

// Stats counts assembler work
type Stats struct {
	Relations     int // multipolygon relations registered
	RelationAreas int
	WayAreas      int
	Failed        int // areas emitted with an error
}

// pendingRelation is a relation waiting for its member ways
type pendingRelation struct {
	rel       *osm.Relation
	outer     []osm.WayID
	inner     []osm.WayID
	ways      map[osm.WayID][]locations.Location
	remaining int
}

// Assembler collects member ways and emits finished areas
type Assembler struct {
	opts      Options
	emit      EmitFunc
	relations map[osm.RelationID]*pendingRelation
	wayIndex  map[osm.WayID][]osm.RelationID
	stats     Stats
}

// New creates an assembler that hands areas to emit
func New(opts Options, emit EmitFunc) *Assembler {
	return &Assembler{
		opts:      opts,
		emit:      emit,
		relations: make(map[osm.RelationID]*pendingRelation),
		wayIndex:  make(map[osm.WayID][]osm.RelationID),
	}
}

// IsMultipolygon reports whether rel is a multipolygon or boundary relation
func IsMultipolygon(rel *osm.Relation) bool {
	t := rel.Tags.Find("type")
	return t == "multipolygon" || t == "boundary"
}

// Relation registers a multipolygon relation. Other relations, and
// relations without way members, are ignored. Returns whether the relation
// was registered.
func (a *Assembler) Relation(rel *osm.Relation) bool {
	if !IsMultipolygon(rel) {
		return false
	}
	if _, dup := a.relations[rel.ID]; dup {
		return false
	}

	p := &pendingRelation{rel: rel, ways: make(map[osm.WayID][]locations.Location)}
	seen := make(map[osm.WayID]bool)
	for _, m := range rel.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		id := osm.WayID(m.Ref)
		if seen[id] {
			continue
		}
		seen[id] = true
		if m.Role == "inner" {
			p.inner = append(p.inner, id)
		} else {
			p.outer = append(p.outer, id)
		}
	}
	p.remaining = len(seen)
	if p.remaining == 0 {
		return false
	}

	a.relations[rel.ID] = p
	for id := range seen {
		a.wayIndex[id] = append(a.wayIndex[id], rel.ID)
	}
	a.stats.Relations++
	return true
}

// IsMember reports whether a pending relation is waiting for way id
func (a *Assembler) IsMember(id osm.WayID) bool {
	return len(a.wayIndex[id]) > 0
}

// Way feeds a way with its resolved node locations (Undefined for nodes
// that could not be found). Completed relations are emitted before Way
// returns.
func (a *Assembler) Way(w *osm.Way, locs []locations.Location) {
	// complete() edits the index entry, iterate over a copy
	relIDs := append([]osm.RelationID(nil), a.wayIndex[w.ID]...)
	if len(relIDs) == 0 {
		if a.opts.WayAreas && isAreaWay(w) {
			a.emitWayArea(w, locs)
		}
		return
	}

	stored := append([]locations.Location(nil), locs...)
	for _, relID := range relIDs {
		p, ok := a.relations[relID]
		if !ok {
			continue
		}
		if _, dup := p.ways[w.ID]; dup {
			continue
		}
		p.ways[w.ID] = stored
		p.remaining--
		if p.remaining == 0 {
			a.complete(relID, p)
		}
	}
}

// isAreaWay reports whether a way can form an area on its own: closed by
// node id, at least 4 nodes, tagged and not area=no
func isAreaWay(w *osm.Way) bool {
	n := len(w.Nodes)
	if n < 4 || w.Nodes[0].ID != w.Nodes[n-1].ID || len(w.Tags) == 0 {
		return false
	}
	return w.Tags.Find("area") != "no"
}

func (a *Assembler) emitWayArea(w *osm.Way, locs []locations.Location) {
	area := areaFromWay(w)
	poly, err := geom.Polygon(locs)
	if err != nil {
		area.Err = err
		a.stats.Failed++
	} else {
		area.Geometry = orb.MultiPolygon{poly}
	}
	a.stats.WayAreas++
	a.emit(area)
}

func (a *Assembler) complete(relID osm.RelationID, p *pendingRelation) {
	delete(a.relations, relID)
	for id := range p.ways {
		a.unindex(id, relID)
	}

	area := areaFromRelation(p.rel)
	outer, err := a.memberPoints(p, p.outer)
	if err == nil {
		var inner [][]orb.Point
		inner, err = a.memberPoints(p, p.inner)
		if err == nil {
			area.Geometry, err = buildMultiPolygon(outer, inner)
		}
	}
	if err != nil {
		area.Err = err
		a.stats.Failed++
		if !errors.Is(err, geom.ErrInvalidLocation) {
			logger.Get().Debug("Multipolygon assembly failed",
				zap.Int64("relation_id", int64(relID)),
				zap.Error(err))
		}
	}

	a.stats.RelationAreas++
	a.emit(area)
}

func (a *Assembler) memberPoints(p *pendingRelation, ids []osm.WayID) ([][]orb.Point, error) {
	out := make([][]orb.Point, 0, len(ids))
	for _, id := range ids {
		pts, err := geom.Points(p.ways[id])
		if err != nil {
			return nil, err
		}
		out = append(out, pts)
	}
	return out, nil
}

func (a *Assembler) unindex(wayID osm.WayID, relID osm.RelationID) {
	ids := a.wayIndex[wayID]
	for i, id := range ids {
		if id == relID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(a.wayIndex, wayID)
	} else {
		a.wayIndex[wayID] = ids
	}
}

// Pending returns the sorted ids of relations still missing member ways
func (a *Assembler) Pending() []int64 {
	ids := make([]int64, 0, len(a.relations))
	for id := range a.relations {
		ids = append(ids, int64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stats returns counters
func (a *Assembler) Stats() Stats {
	return a.stats
}
