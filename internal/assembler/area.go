package assembler

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Area is a polygon or multipolygon assembled from a closed way or a
// multipolygon relation.
type Area struct {
	// ID is 2*id for areas from ways and 2*id+1 for areas from relations
	ID int64
	// OrigID is the id of the way or relation the area was built from
	OrigID  int64
	FromWay bool

	Version     int
	ChangesetID int64
	UserID      int64
	User        string
	Timestamp   time.Time
	Tags        osm.Tags

	Geometry orb.MultiPolygon
	// Err is set instead of Geometry when assembly failed
	Err error
}

// AreaID converts an object id to an area id
func AreaID(id int64, fromWay bool) int64 {
	if fromWay {
		return 2 * id
	}
	return 2*id + 1
}

// ObjectType returns "way" or "relation"
func (a *Area) ObjectType() string {
	if a.FromWay {
		return string(osm.TypeWay)
	}
	return string(osm.TypeRelation)
}

func areaFromWay(w *osm.Way) *Area {
	return &Area{
		ID:          AreaID(int64(w.ID), true),
		OrigID:      int64(w.ID),
		FromWay:     true,
		Version:     w.Version,
		ChangesetID: int64(w.ChangesetID),
		UserID:      int64(w.UserID),
		User:        w.User,
		Timestamp:   w.Timestamp,
		Tags:        w.Tags,
	}
}

func areaFromRelation(r *osm.Relation) *Area {
	return &Area{
		ID:          AreaID(int64(r.ID), false),
		OrigID:      int64(r.ID),
		Version:     r.Version,
		ChangesetID: int64(r.ChangesetID),
		UserID:      int64(r.UserID),
		User:        r.User,
		Timestamp:   r.Timestamp,
		Tags:        r.Tags,
	}
}
