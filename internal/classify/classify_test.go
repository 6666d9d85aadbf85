package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tags(kv ...string) osm.Tags {
	var t osm.Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, osm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		polygons bool
		closed   bool
		tags     osm.Tags
		want     Shape
	}{
		{"open way with area tag", true, false, tags("building", "yes"), Shape{Line: true}},
		{"polygons disabled", false, true, tags("building", "yes"), Shape{Line: true}},
		{"closed building", true, true, tags("building", "yes"), Shape{Polygon: true}},
		{"closed highway", true, true, tags("highway", "residential"), Shape{Line: true}},
		{"area=no overrides building", true, true, tags("building", "yes", "area", "no"), Shape{Line: true}},
		{"area=no listed first", true, true, tags("area", "no", "landuse", "forest"), Shape{Line: true}},
		{"building=no", true, true, tags("building", "no"), Shape{Line: true}},
		{"coastline", true, true, tags("natural", "coastline"), Shape{Line: true}},
		{"natural wood", true, true, tags("natural", "wood"), Shape{Polygon: true}},
		{"area=yes on highway", true, true, tags("highway", "pedestrian", "area", "yes"), Shape{Polygon: true}},
		{"roundabout", true, true, tags("junction", "roundabout", "highway", "primary"), Shape{Line: true}},
		{"untagged", true, true, nil, Shape{Line: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil, tt.polygons)
			assert.Equal(t, tt.want, c.Classify(tt.tags, tt.closed))
		})
	}
}

func TestIsAreaFirstMatchWins(t *testing.T) {
	rs := Rules{
		{Key: "leisure", Value: "track"},
		{Key: "leisure", AnyValue: true, Area: true},
	}
	assert.False(t, rs.IsArea(tags("leisure", "track")))
	assert.True(t, rs.IsArea(tags("leisure", "park")))
	assert.False(t, rs.IsArea(tags("amenity", "park")))
}

func TestDefaultRulesStartWithAreaNo(t *testing.T) {
	rs := DefaultRules()
	require.NotEmpty(t, rs)
	assert.Equal(t, Rule{Key: "area", Value: "no"}, rs[0])
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - key: building
    value: "no"
    area: false
  - key: building
    area: true
  - key: highway
    value: platform
    area: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rs, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, Rule{Key: "building", Value: "no"}, rs[0])
	assert.Equal(t, Rule{Key: "building", AnyValue: true, Area: true}, rs[1])

	c := New(rs, true)
	assert.Equal(t, Shape{Polygon: true}, c.Classify(tags("highway", "platform"), true))
	assert.Equal(t, Shape{Line: true}, c.Classify(tags("landuse", "forest"), true))
}

func TestParseRulesErrors(t *testing.T) {
	_, err := ParseRules([]byte("rules: []\n"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("rules:\n  - value: x\n"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("rules: [\n"))
	assert.Error(t, err)
}
