// Package locations caches node coordinates so ways can be turned into
// geometries. Several backends trade memory for speed; all of them are
// selected through New with a configuration token such as
// "dense_mmap_array" or "sparse_file_array,/tmp/locations.dump".
package locations

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrNotFound is returned by Get for ids that were never stored.
	ErrNotFound = errors.New("location not found")
	// ErrInvalidID is returned by Set for negative ids.
	ErrInvalidID = errors.New("invalid node id")
	// ErrUnknownStore is returned by New for an unrecognized token.
	ErrUnknownStore = errors.New("unknown location store")
)

// Store maps node ids to locations.
type Store interface {
	// Set stores the location for a node id, replacing any earlier value.
	Set(id int64, loc Location) error
	// Get returns the stored location or ErrNotFound.
	Get(id int64) (Location, error)
	// Len returns the number of stored entries.
	Len() int
	// Dump writes the whole store to w in the layout native to the backend
	// (array for dense stores, list for sparse ones).
	Dump(w io.Writer) error
	// Close releases memory maps, files and databases.
	Close() error
}

// Layout identifies one of the two dump formats.
type Layout int

const (
	// LayoutArray is a positional array of locations indexed by id.
	LayoutArray Layout = iota
	// LayoutList is an id-sorted list of (id, location) pairs.
	LayoutList
)

func (l Layout) String() string {
	if l == LayoutArray {
		return "array"
	}
	return "list"
}

type factory struct {
	layout   Layout
	needPath bool
	open     func(path string) (Store, error)
}

var factories = map[string]factory{
	"sparse_mem_map": {layout: LayoutList, open: func(string) (Store, error) {
		return NewSparseMap(), nil
	}},
	"sparse_mem_array": {layout: LayoutList, open: func(string) (Store, error) {
		return NewSparseArray(), nil
	}},
	"sparse_mmap_array": {layout: LayoutList, open: func(string) (Store, error) {
		return opened(NewSparseMmapArray())
	}},
	"sparse_file_array": {layout: LayoutList, needPath: true, open: func(path string) (Store, error) {
		return opened(OpenSparseFileArray(path))
	}},
	"dense_mem_array": {layout: LayoutArray, open: func(string) (Store, error) {
		return NewDenseArray(), nil
	}},
	"dense_mmap_array": {layout: LayoutArray, open: func(string) (Store, error) {
		return opened(NewDenseMmapArray())
	}},
	"dense_file_array": {layout: LayoutArray, needPath: true, open: func(path string) (Store, error) {
		return opened(OpenDenseFileArray(path))
	}},
	"sparse_leveldb": {layout: LayoutList, needPath: true, open: func(path string) (Store, error) {
		return opened(OpenLevelDB(path))
	}},
}

// opened converts a concrete constructor result, keeping a nil Store on error
func opened[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Names returns all known store types, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseToken splits "type[,path]"
func parseToken(token string) (name, path string) {
	name, path, _ = strings.Cut(strings.TrimSpace(token), ",")
	return name, path
}

// LayoutOf returns the dump layout used by the store type in token.
func LayoutOf(token string) (Layout, error) {
	name, _ := parseToken(token)
	f, ok := factories[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
	return f.layout, nil
}

// Check validates a configuration token without opening the store.
func Check(token string) error {
	_, err := lookup(token)
	return err
}

func lookup(token string) (factory, error) {
	name, path := parseToken(token)
	f, ok := factories[name]
	if !ok {
		return f, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStore, name, strings.Join(Names(), ", "))
	}
	if f.needPath && path == "" {
		return f, fmt.Errorf("location store %q needs a path: %s,PATH", name, name)
	}
	return f, nil
}

// New creates a store from a configuration token "type[,path]". File and
// LevelDB stores live at path. For memory and mmap stores path is optional
// and names a dump, in the store's own layout, to preload.
func New(token string) (Store, error) {
	f, err := lookup(token)
	if err != nil {
		return nil, err
	}
	_, path := parseToken(token)
	store, err := f.open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open location store %q: %w", token, err)
	}
	if path != "" && !f.needPath {
		if err := preload(store, path, f.layout); err != nil {
			return nil, multierr.Append(err, store.Close())
		}
	}
	return store, nil
}

func preload(store Store, path string, layout Layout) (err error) {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open location dump: %w", err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	if _, err := Load(file, layout, store); err != nil {
		return fmt.Errorf("failed to load location dump %s: %w", path, err)
	}
	return nil
}

// BackingPath returns the file or directory a store token keeps its data
// in, or "" for stores that live in memory.
func BackingPath(token string) string {
	f, err := lookup(token)
	if err != nil || !f.needPath {
		return ""
	}
	_, path := parseToken(token)
	return filepath.Clean(path)
}

// DefaultToken returns the store type used when none is configured.
func DefaultToken(dense bool) string {
	if dense {
		return "dense_mmap_array"
	}
	return "sparse_mmap_array"
}
