// Package feature encodes OSM objects as GeoJSON features, one per line.
package feature

import (
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Feature roles used in feature ids
const (
	RoleNode       = "n"
	RoleWay        = "w"
	RoleWayLine    = "wl"
	RoleWayPolygon = "wp"
	RoleArea       = "a"
)

const (
	// DefaultPrefix is prepended to metadata property names
	DefaultPrefix = "@"
	// DefaultThreshold is the buffer size that triggers a flush (1 MiB)
	DefaultThreshold = 1024 * 1024
)

// AttributeNames are the property names for object metadata
type AttributeNames struct {
	ID        string
	Type      string
	Version   string
	Changeset string
	UID       string
	User      string
	Timestamp string
}

// NewAttributeNames prefixes every metadata property name with prefix
func NewAttributeNames(prefix string) AttributeNames {
	return AttributeNames{
		ID:        prefix + "id",
		Type:      prefix + "type",
		Version:   prefix + "version",
		Changeset: prefix + "changeset",
		UID:       prefix + "uid",
		User:      prefix + "user",
		Timestamp: prefix + "timestamp",
	}
}

// Property is an extra string property written after the tags
type Property struct {
	Key   string
	Value string
}

// Feature is one output record
type Feature struct {
	// ID is the optional feature id ("n17", "wp42", ...); empty omits it
	ID       string
	Geometry orb.Geometry

	ObjectID   int64
	ObjectType string // node, way or relation
	Version    int
	Changeset  int64
	UID        int64
	User       string
	Timestamp  time.Time

	Tags  osm.Tags
	Extra []Property
}

// FeatureID builds a feature id from a role and an object id
func FeatureID(role string, id int64) string {
	return role + strconv.FormatInt(id, 10)
}

// NodeList joins way node ids with commas, for the nodes attribute
func NodeList(nodes osm.WayNodes) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(int64(n.ID), 10))
	}
	return sb.String()
}

// FromNode fills the metadata of a node feature
func FromNode(n *osm.Node, g orb.Geometry) Feature {
	return Feature{
		Geometry:   g,
		ObjectID:   int64(n.ID),
		ObjectType: string(osm.TypeNode),
		Version:    n.Version,
		Changeset:  int64(n.ChangesetID),
		UID:        int64(n.UserID),
		User:       n.User,
		Timestamp:  n.Timestamp,
		Tags:       n.Tags,
	}
}

// FromWay fills the metadata of a way feature
func FromWay(w *osm.Way, g orb.Geometry) Feature {
	return Feature{
		Geometry:   g,
		ObjectID:   int64(w.ID),
		ObjectType: string(osm.TypeWay),
		Version:    w.Version,
		Changeset:  int64(w.ChangesetID),
		UID:        int64(w.UserID),
		User:       w.User,
		Timestamp:  w.Timestamp,
		Tags:       w.Tags,
	}
}
