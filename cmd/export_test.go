package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osm2geojson-go/internal/config"
)

const exportXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0.0" lon="0.0" version="1"/>
  <node id="2" lat="0.0" lon="0.01" version="1"/>
  <node id="3" lat="0.01" lon="0.01" version="1"/>
  <node id="4" lat="0.01" lon="0.0" version="1"/>
  <node id="5" lat="0.005" lon="0.005" version="1">
    <tag k="amenity" v="bench"/>
  </node>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <nd ref="4"/>
    <nd ref="1"/>
    <tag k="building" v="yes"/>
  </way>
  <way id="11" version="1">
    <nd ref="1"/>
    <nd ref="99"/>
    <tag k="highway" v="track"/>
  </way>
  <relation id="100" version="1">
    <member type="way" ref="10" role="outer"/>
    <tag k="type" v="multipolygon"/>
    <tag k="landuse" v="forest"/>
  </relation>
</osm>
`

func TestExportAndTileList(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sample.osm")
	require.NoError(t, os.WriteFile(input, []byte(exportXML), 0644))

	c := config.DefaultConfig()
	c.InputFile = input
	c.OutputFile = filepath.Join(dir, "out.geojsonl")
	c.ErrorFile = filepath.Join(dir, "errors.txt")
	c.DumpFile = filepath.Join(dir, "locations.dump")
	c.LocationStore = "sparse_mem_array"
	c.Polygons = true
	c.WithID = true
	c.MetricsInterval = 0
	require.NoError(t, c.Validate())

	stats, err := export(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Nodes)
	assert.Equal(t, int64(1), stats.Points)
	assert.Equal(t, int64(1), stats.Polygons)
	assert.Equal(t, int64(1), stats.Areas)
	assert.Equal(t, int64(1), stats.GeometryErrors)

	out, err := os.ReadFile(c.OutputFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `{"type":"Feature","id":"n5",`), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `{"type":"Feature","id":"wp10",`), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], `{"type":"Feature","id":"a201",`), lines[2])
	assert.Contains(t, lines[2], `"landuse":"forest"`)

	errs, err := os.ReadFile(c.ErrorFile)
	require.NoError(t, err)
	assert.Equal(t, "w11:invalid_location\n", string(errs))

	dump, err := os.ReadFile(c.DumpFile)
	require.NoError(t, err)
	assert.Len(t, dump, 5*16)

	change := filepath.Join(dir, "change.osc")
	require.NoError(t, os.WriteFile(change, []byte(`<osmChange version="0.6">
  <modify>
    <node id="5" lat="10" lon="-10" version="2"/>
  </modify>
</osmChange>`), 0644))

	tl := config.DefaultTileListConfig()
	tl.ChangeFile = change
	tl.LocationStore = "sparse_file_array," + c.DumpFile
	tl.Zoom = 1
	tl.OutputFile = filepath.Join(dir, "tiles.txt")
	require.NoError(t, tl.Validate())

	count, err := tileList(context.Background(), tl)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	tiles, err := os.ReadFile(tl.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "0 0\n1 0\n", string(tiles))
}

func TestExportSetupErrors(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sample.osm")
	require.NoError(t, os.WriteFile(input, []byte(exportXML), 0644))

	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"missing tile file", func(c *config.Config) { c.TileFile = filepath.Join(dir, "none.txt") }},
		{"missing rules", func(c *config.Config) { c.RulesFile = filepath.Join(dir, "none.yaml") }},
		{"missing style", func(c *config.Config) { c.StyleFile = filepath.Join(dir, "none.yaml") }},
		{"bad output dir", func(c *config.Config) { c.OutputFile = filepath.Join(dir, "no", "out") }},
		{"bad error dir", func(c *config.Config) { c.ErrorFile = filepath.Join(dir, "no", "errors") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.DefaultConfig()
			c.InputFile = input
			c.OutputFile = filepath.Join(t.TempDir(), "out")
			c.LocationStore = "sparse_mem_map"
			c.MetricsInterval = 0
			tt.modify(c)

			_, err := export(context.Background(), c)
			assert.Error(t, err)
		})
	}
}
