package classify

import (
	"github.com/paulmach/osm"
)

// Shape says which geometries a way produces
type Shape struct {
	Line    bool
	Polygon bool
}

// Classifier chooses the output shape of ways
type Classifier struct {
	Rules          Rules
	CreatePolygons bool
}

// New creates a classifier using rules, or the default table when rules is nil
func New(rules Rules, createPolygons bool) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{Rules: rules, CreatePolygons: createPolygons}
}

// Classify returns the shape for a way with tags. Only closed ways that
// match an area rule become polygons, and then they are not lines.
func (c *Classifier) Classify(tags osm.Tags, closed bool) Shape {
	if !c.CreatePolygons || !closed {
		return Shape{Line: true}
	}
	if c.Rules.IsArea(tags) {
		return Shape{Polygon: true}
	}
	return Shape{Line: true}
}
