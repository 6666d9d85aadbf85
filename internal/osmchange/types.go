// Package osmchange reads OsmChange files (.osc, optionally compressed)
// as a stream of create, modify and delete actions.
package osmchange

import (
	"github.com/paulmach/osm"

	"github.com/wegman-software/osm2geojson-go/internal/locations"
)

// Action represents the type of change in an OSC file
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Change represents a single OSM change from an OSC file. Exactly one of
// Node, Way and Relation is set.
type Change struct {
	Action   Action
	Node     *osm.Node
	Way      *osm.Way
	Relation *osm.Relation

	// Location is the new node location, Undefined when the element had
	// no coordinates (deletions usually don't)
	Location locations.Location
}

// Type returns the element type of the change
func (c Change) Type() osm.Type {
	switch {
	case c.Node != nil:
		return osm.TypeNode
	case c.Way != nil:
		return osm.TypeWay
	default:
		return osm.TypeRelation
	}
}

// Object returns the changed object
func (c Change) Object() osm.Object {
	switch {
	case c.Node != nil:
		return c.Node
	case c.Way != nil:
		return c.Way
	default:
		return c.Relation
	}
}

// Stats tracks OSC parsing statistics
type Stats struct {
	NodesCreated      int64
	NodesModified     int64
	NodesDeleted      int64
	WaysCreated       int64
	WaysModified      int64
	WaysDeleted       int64
	RelationsCreated  int64
	RelationsModified int64
	RelationsDeleted  int64
}

// Total returns total number of changes
func (s *Stats) Total() int64 {
	return s.NodesCreated + s.NodesModified + s.NodesDeleted +
		s.WaysCreated + s.WaysModified + s.WaysDeleted +
		s.RelationsCreated + s.RelationsModified + s.RelationsDeleted
}

func (s *Stats) add(c Change) {
	switch c.Type() {
	case osm.TypeNode:
		switch c.Action {
		case ActionCreate:
			s.NodesCreated++
		case ActionModify:
			s.NodesModified++
		case ActionDelete:
			s.NodesDeleted++
		}
	case osm.TypeWay:
		switch c.Action {
		case ActionCreate:
			s.WaysCreated++
		case ActionModify:
			s.WaysModified++
		case ActionDelete:
			s.WaysDeleted++
		}
	case osm.TypeRelation:
		switch c.Action {
		case ActionCreate:
			s.RelationsCreated++
		case ActionModify:
			s.RelationsModified++
		case ActionDelete:
			s.RelationsDeleted++
		}
	}
}
