// Package source opens OSM data files and streams their objects. PBF, XML
// and compressed XML (gzip, bzip2, zstd) inputs are supported.
package source

import (
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/multierr"
)

// ErrUnknownFormat is returned for files whose format can't be determined
var ErrUnknownFormat = errors.New("unknown input format")

// Format is an input file format
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

// Compression of an XML input
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionZstd
)

// Kinds selects the object kinds a scan delivers
type Kinds struct {
	Nodes     bool
	Ways      bool
	Relations bool
}

var (
	// All delivers every object
	All = Kinds{Nodes: true, Ways: true, Relations: true}
	// RelationsOnly is used by the first export pass
	RelationsOnly = Kinds{Relations: true}
)

func (k Kinds) accepts(o osm.Object) bool {
	switch o.(type) {
	case *osm.Node:
		return k.Nodes
	case *osm.Way:
		return k.Ways
	case *osm.Relation:
		return k.Relations
	}
	return false
}

// Source can be scanned any number of times
type Source interface {
	Open(ctx context.Context, kinds Kinds) (osm.Scanner, error)
}

// DetectFormat derives format and compression from a file name
func DetectFormat(path string) (Format, Compression, error) {
	name := strings.ToLower(path)
	compression := CompressionNone
	switch {
	case strings.HasSuffix(name, ".gz"):
		compression = CompressionGzip
		name = strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".bz2"):
		compression = CompressionBzip2
		name = strings.TrimSuffix(name, ".bz2")
	case strings.HasSuffix(name, ".zst"):
		compression = CompressionZstd
		name = strings.TrimSuffix(name, ".zst")
	}

	switch {
	case strings.HasSuffix(name, ".pbf"):
		if compression != CompressionNone {
			return 0, 0, fmt.Errorf("%w: compressed PBF %s", ErrUnknownFormat, path)
		}
		return FormatPBF, compression, nil
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"),
		strings.HasSuffix(name, ".osc"):
		return FormatXML, compression, nil
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Decompress wraps r according to c. The returned closer releases the
// decompressor, not r.
func Decompress(r io.Reader, c Compression) (io.Reader, io.Closer, error) {
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gz, gz, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), nopCloser, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr, closerFunc(func() error { zr.Close(); return nil }), nil
	}
	return r, nopCloser, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// File is an OSM file on disk
type File struct {
	Path     string
	Workers  int  // PBF decoder goroutines
	Progress bool // show a progress bar on stderr while reading
}

// Open starts a scan of the file
func (f *File) Open(ctx context.Context, kinds Kinds) (osm.Scanner, error) {
	format, compression, err := DetectFormat(f.Path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	closers := []io.Closer{file}
	var r io.Reader = file
	if f.Progress {
		bar, err := wrapProgress(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		// the bar closes the file
		closers = []io.Closer{bar}
		r = bar
	}

	fs := &fileScanner{closers: closers}

	switch format {
	case FormatPBF:
		workers := f.Workers
		if workers < 1 {
			workers = 1
		}
		s := osmpbf.New(ctx, r, workers)
		s.SkipNodes = !kinds.Nodes
		s.SkipWays = !kinds.Ways
		s.SkipRelations = !kinds.Relations
		fs.Scanner = s
	case FormatXML:
		dr, dc, err := Decompress(r, compression)
		if err != nil {
			fs.closeAll()
			return nil, err
		}
		fs.closers = append([]io.Closer{dc}, fs.closers...)
		fs.Scanner = Filter(osmxml.New(ctx, dr), kinds)
	}

	return fs, nil
}

// fileScanner closes the underlying file and decompressor with the scanner
type fileScanner struct {
	osm.Scanner
	closers []io.Closer
}

func (s *fileScanner) closeAll() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	s.closers = nil
	return err
}

func (s *fileScanner) Close() error {
	err := s.Scanner.Close()
	return multierr.Append(err, s.closeAll())
}
