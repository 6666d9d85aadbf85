// Package report counts objects that could not be turned into features and
// optionally lists them in a side file.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/geom"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

// Object type characters used in the side file
const (
	TypeNode     = 'n'
	TypeWay      = 'w'
	TypeRelation = 'r'
	TypeArea     = 'a'
)

// Reporter counts geometry problems. Each one is written as
// "<type><id>:<kind>" when a side file is configured.
type Reporter struct {
	count  int64
	byKind map[string]int64
	w      *bufio.Writer
	file   io.Closer
}

// New creates a reporter that only counts
func New() *Reporter {
	return &Reporter{byKind: make(map[string]int64)}
}

// NewWithWriter creates a reporter writing to w
func NewWithWriter(w io.Writer) *Reporter {
	r := New()
	r.w = bufio.NewWriter(w)
	return r
}

// Open creates a reporter writing to path; an empty path only counts
func Open(path string) (*Reporter, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create error file: %w", err)
	}
	r := NewWithWriter(f)
	r.file = f
	return r, nil
}

// Report records one failed object
func (r *Reporter) Report(objType byte, id int64, err error) error {
	kind := geom.Kind(err)
	r.count++
	r.byKind[kind]++

	logger.Get().Debug("Geometry problem",
		zap.String("object", fmt.Sprintf("%c%d", objType, id)),
		zap.Error(err))

	if r.w == nil {
		return nil
	}
	if _, werr := fmt.Fprintf(r.w, "%c%d:%s\n", objType, id, kind); werr != nil {
		return fmt.Errorf("failed to write error file: %w", werr)
	}
	return nil
}

// Count returns the number of reported objects
func (r *Reporter) Count() int64 {
	return r.count
}

// CountKind returns the number of reports of one kind
func (r *Reporter) CountKind(kind string) int64 {
	return r.byKind[kind]
}

// Summary logs the totals as a warning when anything was reported
func (r *Reporter) Summary() {
	if r.count == 0 {
		return
	}
	logger.Get().Warn("Some objects could not be converted",
		zap.Int64("geometry_errors", r.count),
		zap.Int64(geom.KindGeometry, r.CountKind(geom.KindGeometry)),
		zap.Int64(geom.KindInvalidLocation, r.CountKind(geom.KindInvalidLocation)))
}

// Close flushes and closes the side file
func (r *Reporter) Close() error {
	var err error
	if r.w != nil {
		err = multierr.Append(err, r.w.Flush())
	}
	if r.file != nil {
		err = multierr.Append(err, r.file.Close())
		r.file = nil
	}
	return err
}
