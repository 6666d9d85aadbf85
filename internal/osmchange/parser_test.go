package osmchange

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osm2geojson-go/internal/locations"
)

const oscData = `<?xml version="1.0" encoding="UTF-8"?>
<osmChange version="0.6" generator="test">
  <create>
    <node id="1" lat="43.7384" lon="7.4246" version="1" changeset="123" timestamp="2024-01-15T12:00:00Z" user="testuser" uid="1">
      <tag k="name" v="Test Node"/>
      <tag k="amenity" v="cafe"/>
    </node>
    <way id="100" version="1" changeset="124">
      <nd ref="1"/>
      <nd ref="2"/>
      <nd ref="3"/>
      <tag k="highway" v="primary"/>
    </way>
  </create>
  <modify>
    <node id="2" lat="43.7390" lon="7.4250" version="2">
      <tag k="name" v="Modified Node"/>
    </node>
    <relation id="200" version="2">
      <member type="way" ref="100" role="outer"/>
      <member type="way" ref="101" role="inner"/>
      <tag k="type" v="multipolygon"/>
    </relation>
  </modify>
  <delete>
    <node id="999"/>
    <way id="998"/>
  </delete>
</osmChange>`

func collect(t *testing.T, changes <-chan Change, errs <-chan error) []Change {
	t.Helper()
	var all []Change
	for c := range changes {
		all = append(all, c)
	}
	for err := range errs {
		require.NoError(t, err)
	}
	return all
}

func TestParseOSC(t *testing.T) {
	parser := NewParser()
	changes, errs := parser.ParseReader(context.Background(), strings.NewReader(oscData))
	all := collect(t, changes, errs)

	stats := parser.Stats()
	assert.Equal(t, int64(1), stats.NodesCreated)
	assert.Equal(t, int64(1), stats.NodesModified)
	assert.Equal(t, int64(1), stats.NodesDeleted)
	assert.Equal(t, int64(1), stats.WaysCreated)
	assert.Equal(t, int64(1), stats.WaysDeleted)
	assert.Equal(t, int64(1), stats.RelationsModified)
	assert.Equal(t, int64(6), stats.Total())
	require.Len(t, all, 6)

	first := all[0]
	assert.Equal(t, ActionCreate, first.Action)
	assert.Equal(t, osm.TypeNode, first.Type())
	require.NotNil(t, first.Node)
	assert.Equal(t, osm.NodeID(1), first.Node.ID)
	assert.Equal(t, "Test Node", first.Node.Tags.Find("name"))
	assert.Equal(t, "name", first.Node.Tags[0].Key, "tag order is kept")
	assert.Equal(t, "testuser", first.Node.User)
	assert.Equal(t, int64(1705320000), first.Node.Timestamp.Unix())
	assert.Equal(t, locations.FromLatLon(43.7384, 7.4246), first.Location)

	way := all[1]
	assert.Equal(t, osm.TypeWay, way.Type())
	require.NotNil(t, way.Way)
	assert.Equal(t, osm.WayID(100), way.Way.ID)
	assert.Len(t, way.Way.Nodes, 3)
	assert.Equal(t, "primary", way.Way.Tags.Find("highway"))

	rel := all[3]
	assert.Equal(t, ActionModify, rel.Action)
	require.NotNil(t, rel.Relation)
	assert.Equal(t, osm.RelationID(200), rel.Relation.ID)
	require.Len(t, rel.Relation.Members, 2)
	assert.Equal(t, osm.TypeWay, rel.Relation.Members[0].Type)
	assert.Equal(t, "inner", rel.Relation.Members[1].Role)
	assert.Equal(t, osm.TypeRelation, rel.Type())

	deleted := all[4]
	assert.Equal(t, ActionDelete, deleted.Action)
	assert.Equal(t, osm.NodeID(999), deleted.Node.ID)
	assert.False(t, deleted.Location.IsDefined())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"outside action", `<osmChange><node id="1"/></osmChange>`},
		{"bad id", `<osmChange><create><node id="x"/></create></osmChange>`},
		{"bad ref", `<osmChange><create><way id="1"><nd ref="?"/></way></create></osmChange>`},
		{"truncated", `<osmChange><create><way id="1">`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, errs := NewParser().ParseReader(context.Background(), strings.NewReader(tt.data))
			for range changes {
			}
			var got error
			for err := range errs {
				got = err
			}
			assert.Error(t, got)
		})
	}
}

func TestParseFileGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(oscData))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	path := filepath.Join(t.TempDir(), "change.osc.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	parser := NewParser()
	allChanges, allErrs := parser.ParseFile(context.Background(), path)
	all := collect(t, allChanges, allErrs)
	assert.Len(t, all, 6)

	changes, errs := NewParser().ParseFile(context.Background(), filepath.Join(t.TempDir(), "change.osm.pbf"))
	for range changes {
	}
	assert.Error(t, <-errs)
}

func TestTileDiff(t *testing.T) {
	old := locations.NewSparseMap()
	require.NoError(t, old.Set(1, locations.FromLatLon(10, 10)))
	require.NoError(t, old.Set(2, locations.FromLatLon(10, -10)))

	diff := NewTileDiff(old, 1)
	defer diff.Close()

	data := `<osmChange version="0.6">
  <modify>
    <node id="1" lat="-10" lon="-10" version="2"/>
    <way id="5" version="2">
      <nd ref="1"/>
      <nd ref="2"/>
      <nd ref="77"/>
    </way>
  </modify>
  <delete>
    <node id="50"/>
  </delete>
</osmChange>`

	changes, errs := NewParser().ParseReader(context.Background(), strings.NewReader(data))
	require.NoError(t, diff.Consume(context.Background(), changes, errs))

	var out bytes.Buffer
	require.NoError(t, diff.Tracker().WriteTo(&out, false))
	assert.Equal(t, "0 0\n0 1\n1 0\n", out.String())

	out.Reset()
	require.NoError(t, diff.Tracker().WriteTo(&out, true))
	assert.Equal(t, "1 0 0\n1 0 1\n1 1 0\n", out.String())
}
