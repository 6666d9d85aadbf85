package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="1.0" lon="2.0" version="1"/>
  <node id="2" lat="1.5" lon="2.5" version="1">
    <tag k="amenity" v="cafe"/>
  </node>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
  <relation id="100" version="1">
    <member type="way" ref="10" role="outer"/>
    <tag k="type" v="multipolygon"/>
  </relation>
</osm>
`

func scanAll(t *testing.T, src Source, kinds Kinds) []osm.Object {
	t.Helper()
	s, err := src.Open(context.Background(), kinds)
	require.NoError(t, err)
	defer s.Close()

	var out []osm.Object
	for s.Scan() {
		out = append(out, s.Object())
	}
	require.NoError(t, s.Err())
	return out
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path        string
		format      Format
		compression Compression
		wantErr     bool
	}{
		{"planet.osm.pbf", FormatPBF, CompressionNone, false},
		{"extract.osm", FormatXML, CompressionNone, false},
		{"extract.OSM.GZ", FormatXML, CompressionGzip, false},
		{"extract.osm.bz2", FormatXML, CompressionBzip2, false},
		{"extract.osm.zst", FormatXML, CompressionZstd, false},
		{"change.osc.gz", FormatXML, CompressionGzip, false},
		{"broken.osm.pbf.gz", 0, 0, true},
		{"notes.txt", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, compression, err := DetectFormat(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.compression, compression)
		})
	}
}

func TestFileXML(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "sample.osm")
	require.NoError(t, os.WriteFile(plain, []byte(sampleXML), 0644))

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(sampleXML))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	gzPath := filepath.Join(dir, "sample.osm.gz")
	require.NoError(t, os.WriteFile(gzPath, gz.Bytes(), 0644))

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	require.NoError(t, err)
	_, err = zw.Write([]byte(sampleXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	zstPath := filepath.Join(dir, "sample.osm.zst")
	require.NoError(t, os.WriteFile(zstPath, zs.Bytes(), 0644))

	for _, path := range []string{plain, gzPath, zstPath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			src := &File{Path: path}

			all := scanAll(t, src, All)
			require.Len(t, all, 4)
			assert.Equal(t, osm.NodeID(1), all[0].(*osm.Node).ID)
			assert.Equal(t, "cafe", all[1].(*osm.Node).Tags.Find("amenity"))
			assert.Len(t, all[2].(*osm.Way).Nodes, 2)

			rels := scanAll(t, src, RelationsOnly)
			require.Len(t, rels, 1)
			assert.Equal(t, osm.RelationID(100), rels[0].(*osm.Relation).ID)
		})
	}
}

func TestFileMissing(t *testing.T) {
	src := &File{Path: filepath.Join(t.TempDir(), "missing.osm.pbf")}
	_, err := src.Open(context.Background(), All)
	assert.Error(t, err)
}

func TestObjects(t *testing.T) {
	objs := Objects{
		&osm.Node{ID: 1},
		&osm.Way{ID: 2},
		&osm.Relation{ID: 3},
		&osm.Node{ID: 4},
	}

	assert.Len(t, scanAll(t, objs, All), 4)
	assert.Len(t, scanAll(t, objs, Kinds{Nodes: true}), 2)
	assert.Len(t, scanAll(t, objs, RelationsOnly), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := objs.Open(ctx, All)
	require.NoError(t, err)
	assert.False(t, s.Scan())
	assert.ErrorIs(t, s.Err(), context.Canceled)
}
