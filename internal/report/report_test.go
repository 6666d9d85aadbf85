package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osm2geojson-go/internal/geom"
)

func TestReporterWritesLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithWriter(&buf)

	require.NoError(t, r.Report(TypeNode, 5, fmt.Errorf("%w: undefined", geom.ErrInvalidLocation)))
	require.NoError(t, r.Report(TypeWay, 12, geom.ErrGeometry))
	require.NoError(t, r.Report(TypeArea, 31, geom.ErrGeometry))
	require.NoError(t, r.Close())

	assert.Equal(t, "n5:invalid_location\nw12:geometry_error\na31:geometry_error\n", buf.String())
	assert.Equal(t, int64(3), r.Count())
	assert.Equal(t, int64(2), r.CountKind(geom.KindGeometry))
	assert.Equal(t, int64(1), r.CountKind(geom.KindInvalidLocation))
	r.Summary()
}

func TestReporterCountOnly(t *testing.T) {
	r, err := Open("")
	require.NoError(t, err)
	require.NoError(t, r.Report(TypeRelation, 1, geom.ErrGeometry))
	assert.Equal(t, int64(1), r.Count())
	assert.NoError(t, r.Close())
}

func TestReporterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.txt")
	r, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r.Report(TypeWay, 7, geom.ErrGeometry))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "w7:geometry_error\n", string(data))

	_, err = Open(filepath.Join(t.TempDir(), "missing", "errors.txt"))
	assert.Error(t, err)
}
