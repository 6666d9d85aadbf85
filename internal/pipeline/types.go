package pipeline

import (
	"errors"
	"fmt"

	"github.com/wegman-software/osm2geojson-go/internal/classify"
	"github.com/wegman-software/osm2geojson-go/internal/style"
	"github.com/wegman-software/osm2geojson-go/internal/tile"
)

// ErrBadTransition is returned when a handler is called in the wrong state
var ErrBadTransition = errors.New("invalid collector state transition")

// State is the lifecycle stage of a Collector
type State int

const (
	// CollectingRelations is pass 1: relations are indexed, nothing is written
	CollectingRelations State = iota
	// ResolvingLocations is pass 2 before the first way: node locations are stored
	ResolvingLocations
	// EmittingFeatures is pass 2 from the first way on
	EmittingFeatures
	// Done means the writer has been flushed and counts are final
	Done
)

func (s State) String() string {
	switch s {
	case CollectingRelations:
		return "collecting_relations"
	case ResolvingLocations:
		return "resolving_locations"
	case EmittingFeatures:
		return "emitting_features"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configure a Collector. Zero values give a plain export: no tile
// filter, no style filter, lines only, no feature ids.
type Options struct {
	Filter     *tile.Filter
	Classifier *classify.Classifier
	Styles     *style.Filters

	// WithID writes a feature id built from role and object id
	WithID bool
	// NodesAttribute, when set, names a property listing a way's node ids
	NodesAttribute string
	// WayAreas also assembles areas from closed ways outside relations
	WayAreas bool
}

// Stats holds export statistics
type Stats struct {
	Nodes     int64
	Ways      int64
	Relations int64

	// Multipolygons is the number of relations registered with the assembler
	Multipolygons int64
	// Incomplete is the number of relations still missing member ways
	Incomplete int64

	Points   int64
	Lines    int64
	Polygons int64
	Areas    int64

	// Unstored counts nodes whose id the location store cannot hold
	Unstored int64
	// Unordered counts pass 2 objects that broke type then id order
	Unordered int64

	// GeometryErrors counts reported objects, InvalidLocations the part of
	// them caused by missing or out of range node locations
	GeometryErrors   int64
	InvalidLocations int64
	BytesWritten     int64
}

// Features returns the total number of features written
func (s Stats) Features() int64 {
	return s.Points + s.Lines + s.Polygons + s.Areas
}
