// Package pipeline drives the two-pass export: relations are collected in
// the first pass, the second pass stores node locations and writes point,
// line, polygon and area features as their inputs become available.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/assembler"
	"github.com/wegman-software/osm2geojson-go/internal/classify"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/geom"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/report"
	"github.com/wegman-software/osm2geojson-go/internal/style"
)

// Collector turns OSM objects into features. It owns no files: the store,
// writer and reporter are handed in and closed by the caller.
type Collector struct {
	state State
	opts  Options

	store    locations.Store
	writer   *feature.Writer
	reporter *report.Reporter
	asm      *assembler.Assembler

	// areas completed by the assembler, drained after every object
	areas []*assembler.Area
	locs  []locations.Location

	// last object seen in pass 2, for the order check
	lastType osm.Type
	lastID   int64

	stats Stats
}

// NewCollector creates a collector in the CollectingRelations state
func NewCollector(store locations.Store, w *feature.Writer, r *report.Reporter, opts Options) *Collector {
	if opts.Classifier == nil {
		opts.Classifier = classify.New(nil, false)
	}
	c := &Collector{
		opts:     opts,
		store:    store,
		writer:   w,
		reporter: r,
	}
	c.asm = assembler.New(assembler.Options{WayAreas: opts.WayAreas}, func(a *assembler.Area) {
		c.areas = append(c.areas, a)
	})
	return c
}

// State returns the current state
func (c *Collector) State() State {
	return c.state
}

// Stats returns the counters collected so far
func (c *Collector) Stats() Stats {
	s := c.stats
	s.GeometryErrors = c.reporter.Count()
	s.InvalidLocations = c.reporter.CountKind(geom.KindInvalidLocation)
	s.BytesWritten = c.writer.Stats().Bytes
	return s
}

func (c *Collector) expect(allowed ...State) error {
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: not allowed in state %s", ErrBadTransition, c.state)
}

// Relation hands a relation to the assembler during pass 1
func (c *Collector) Relation(rel *osm.Relation) error {
	if err := c.expect(CollectingRelations); err != nil {
		return err
	}
	c.stats.Relations++
	if c.asm.Relation(rel) {
		c.stats.Multipolygons++
	}
	return nil
}

// StartResolving ends pass 1. The pass 1 scan must be closed by now.
func (c *Collector) StartResolving() error {
	if err := c.expect(CollectingRelations); err != nil {
		return err
	}
	c.state = ResolvingLocations
	logger.Get().Debug("Relations collected",
		zap.Int64("relations", c.stats.Relations),
		zap.Int64("multipolygons", c.stats.Multipolygons))
	return nil
}

// Object dispatches one pass 2 object. Relations were handled in pass 1
// and are skipped.
func (c *Collector) Object(o osm.Object) error {
	switch o := o.(type) {
	case *osm.Node:
		c.checkOrder(osm.TypeNode, int64(o.ID))
		return c.Node(o)
	case *osm.Way:
		c.checkOrder(osm.TypeWay, int64(o.ID))
		return c.Way(o)
	case *osm.Relation:
		c.checkOrder(osm.TypeRelation, int64(o.ID))
		return c.expect(ResolvingLocations, EmittingFeatures)
	}
	return nil
}

// typeRank orders object types the way sorted OSM files do
var typeRank = map[osm.Type]int{osm.TypeNode: 0, osm.TypeWay: 1, osm.TypeRelation: 2}

// idBefore orders ids like sorted OSM files: negative ids first by absolute
// value, then positive ids
func idBefore(a, b int64) bool {
	if (a < 0) != (b < 0) {
		return a < 0
	}
	if a < 0 {
		return a > b
	}
	return a < b
}

// checkOrder warns once when the input is not sorted by type then id.
// Unsorted input makes ways reference nodes that were not stored yet.
func (c *Collector) checkOrder(typ osm.Type, id int64) {
	if c.lastType != "" {
		rank, last := typeRank[typ], typeRank[c.lastType]
		if rank < last || (rank == last && !idBefore(c.lastID, id)) {
			if c.stats.Unordered == 0 {
				logger.Get().Warn("Input is not sorted by type and id, ways may miss node locations",
					zap.String("object", fmt.Sprintf("%s/%d", typ, id)),
					zap.String("after", fmt.Sprintf("%s/%d", c.lastType, c.lastID)))
			}
			c.stats.Unordered++
		}
	}
	c.lastType, c.lastID = typ, id
}

// Node stores the node location and writes a point for tagged nodes
func (c *Collector) Node(n *osm.Node) error {
	if err := c.expect(ResolvingLocations, EmittingFeatures); err != nil {
		return err
	}
	c.stats.Nodes++

	loc := locations.FromLatLon(n.Lat, n.Lon)
	if err := c.store.Set(int64(n.ID), loc); errors.Is(err, locations.ErrInvalidID) {
		// ways referencing it report invalid_location
		c.stats.Unstored++
	} else if err != nil {
		return fmt.Errorf("failed to store location of node %d: %w", n.ID, err)
	}
	if len(n.Tags) == 0 {
		return c.finishObject()
	}

	if err := c.objectDone(report.TypeNode, int64(n.ID), c.emitNode(n, loc)); err != nil {
		return err
	}
	return c.finishObject()
}

func (c *Collector) emitNode(n *osm.Node, loc locations.Location) error {
	ok, err := c.opts.Filter.NodeRelevant(loc)
	if err != nil || !ok {
		return err
	}
	if !c.opts.Styles.Match(style.Points, n.Tags) {
		return nil
	}

	pt, err := geom.Point(loc)
	if err != nil {
		return err
	}
	f := feature.FromNode(n, pt)
	if c.opts.WithID {
		f.ID = feature.FeatureID(feature.RoleNode, int64(n.ID))
	}
	if err := c.writer.Emit(f); err != nil {
		return err
	}
	c.stats.Points++
	return nil
}

// Way resolves the way's node locations, writes its line or polygon and
// feeds it to the assembler. The first way moves the collector to
// EmittingFeatures.
func (c *Collector) Way(w *osm.Way) error {
	if c.state == ResolvingLocations {
		c.state = EmittingFeatures
	}
	if err := c.expect(EmittingFeatures); err != nil {
		return err
	}
	c.stats.Ways++

	locs, err := c.resolve(w.Nodes)
	if err != nil {
		return err
	}

	polygon, emitErr := c.emitWay(w, locs)
	// a way written as a polygon gets no way area of its own
	if !polygon || c.asm.IsMember(w.ID) {
		c.asm.Way(w, locs)
	}
	if err := c.objectDone(report.TypeWay, int64(w.ID), emitErr); err != nil {
		return err
	}
	return c.finishObject()
}

// resolve looks up every node of a way; unknown nodes get Undefined
func (c *Collector) resolve(nodes osm.WayNodes) ([]locations.Location, error) {
	c.locs = c.locs[:0]
	for _, n := range nodes {
		loc, err := c.store.Get(int64(n.ID))
		if errors.Is(err, locations.ErrNotFound) || errors.Is(err, locations.ErrInvalidID) {
			loc = locations.Undefined
		} else if err != nil {
			return nil, fmt.Errorf("failed to look up node %d: %w", n.ID, err)
		}
		c.locs = append(c.locs, loc)
	}
	return c.locs, nil
}

// emitWay builds every feature of the way before writing any of them, so a
// geometry problem never leaves half of a way's output behind. It reports
// whether the way is classified as a polygon.
func (c *Collector) emitWay(w *osm.Way, locs []locations.Location) (bool, error) {
	if len(w.Nodes) <= 1 {
		return false, nil
	}
	closed := w.Nodes[0].ID == w.Nodes[len(w.Nodes)-1].ID
	shape := c.opts.Classifier.Classify(w.Tags, closed)

	ok, err := c.opts.Filter.WayRelevant(locs)
	if err != nil || !ok {
		return shape.Polygon, err
	}

	var extra []feature.Property
	if c.opts.NodesAttribute != "" {
		extra = []feature.Property{{Key: c.opts.NodesAttribute, Value: feature.NodeList(w.Nodes)}}
	}

	var line, polygon *feature.Feature
	if shape.Line && c.opts.Styles.Match(style.Lines, w.Tags) {
		ls, err := geom.LineString(locs)
		if err != nil {
			return shape.Polygon, err
		}
		role := feature.RoleWay
		if c.opts.Classifier.CreatePolygons {
			role = feature.RoleWayLine
		}
		line = c.wayFeature(w, ls, role, extra)
	}
	if shape.Polygon && c.opts.Styles.Match(style.Polygons, w.Tags) {
		poly, err := geom.Polygon(locs)
		if err != nil {
			return shape.Polygon, err
		}
		polygon = c.wayFeature(w, poly, feature.RoleWayPolygon, extra)
	}

	if line != nil {
		if err := c.writer.Emit(*line); err != nil {
			return shape.Polygon, err
		}
		c.stats.Lines++
	}
	if polygon != nil {
		if err := c.writer.Emit(*polygon); err != nil {
			return shape.Polygon, err
		}
		c.stats.Polygons++
	}
	return shape.Polygon, nil
}

func (c *Collector) wayFeature(w *osm.Way, g orb.Geometry, role string, extra []feature.Property) *feature.Feature {
	f := feature.FromWay(w, g)
	f.Extra = extra
	if c.opts.WithID {
		f.ID = feature.FeatureID(role, int64(w.ID))
	}
	return &f
}

// drainAreas writes the areas the assembler completed while handling the
// current object
func (c *Collector) drainAreas() error {
	for i, a := range c.areas {
		err := c.objectDone(report.TypeArea, a.ID, c.emitArea(a))
		c.areas[i] = nil
		if err != nil {
			c.areas = c.areas[:0]
			return err
		}
	}
	c.areas = c.areas[:0]
	return nil
}

func (c *Collector) emitArea(a *assembler.Area) error {
	if a.Err != nil {
		return a.Err
	}
	if !c.opts.Filter.AreaRelevant(a.Geometry) {
		return nil
	}
	if !c.opts.Styles.Match(style.Polygons, a.Tags) {
		return nil
	}

	f := feature.Feature{
		Geometry:   a.Geometry,
		ObjectID:   a.OrigID,
		ObjectType: a.ObjectType(),
		Version:    a.Version,
		Changeset:  a.ChangesetID,
		UID:        a.UserID,
		User:       a.User,
		Timestamp:  a.Timestamp,
		Tags:       a.Tags,
	}
	if c.opts.WithID {
		f.ID = feature.FeatureID(feature.RoleArea, a.ID)
	}
	if err := c.writer.Emit(f); err != nil {
		return err
	}
	c.stats.Areas++
	return nil
}

// objectDone reports an object-local error and swallows it. Any other
// error aborts the export.
func (c *Collector) objectDone(objType byte, id int64, err error) error {
	if err == nil {
		return nil
	}
	if !geom.IsObjectError(err) {
		return err
	}
	return c.reporter.Report(objType, id, err)
}

// finishObject writes pending areas and lets the writer flush
func (c *Collector) finishObject() error {
	if err := c.drainAreas(); err != nil {
		return err
	}
	return c.writer.MaybeFlush()
}

// Finish flushes the writer and finalizes the counts
func (c *Collector) Finish() (Stats, error) {
	if err := c.expect(ResolvingLocations, EmittingFeatures); err != nil {
		return c.Stats(), err
	}
	if err := c.drainAreas(); err != nil {
		return c.Stats(), err
	}
	if err := c.writer.Flush(); err != nil {
		return c.Stats(), err
	}
	c.state = Done

	log := logger.Get()
	if pending := c.asm.Pending(); len(pending) > 0 {
		c.stats.Incomplete = int64(len(pending))
		log.Warn("Multipolygon relations with missing member ways were not written",
			zap.Int("count", len(pending)))
		log.Debug("Incomplete relations", zap.Int64s("relation_ids", pending))
	}

	if c.stats.Unordered > 0 {
		log.Warn("Objects out of order in the input",
			zap.Int64("count", c.stats.Unordered))
	}
	if c.stats.Unstored > 0 {
		log.Warn("Node locations not stored, the store cannot hold their ids",
			zap.Int64("count", c.stats.Unstored))
	}

	c.reporter.Summary()
	return c.Stats(), nil
}
