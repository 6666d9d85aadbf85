package locations

import (
	"encoding/binary"
	"io"
	"sort"
)

// SparseMap stores locations in a hash map. Good for small extracts with
// scattered ids.
type SparseMap struct {
	m map[int64]Location
}

// NewSparseMap creates an empty map store.
func NewSparseMap() *SparseMap {
	return &SparseMap{m: make(map[int64]Location)}
}

func (s *SparseMap) Set(id int64, loc Location) error {
	if id < 0 {
		return ErrInvalidID
	}
	s.m[id] = loc
	return nil
}

func (s *SparseMap) Get(id int64) (Location, error) {
	loc, ok := s.m[id]
	if !ok {
		return Undefined, ErrNotFound
	}
	return loc, nil
}

func (s *SparseMap) Len() int { return len(s.m) }

func (s *SparseMap) Dump(w io.Writer) error {
	ids := make([]int64, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dumpList(w, func(visit visitFunc) error {
		for _, id := range ids {
			if err := visit(id, s.m[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SparseMap) Close() error {
	s.m = nil
	return nil
}

// SparseArray appends (id, location) records to a backing region and sorts
// them on the first lookup after a write. Input files are usually sorted by
// id, in which case no sort ever happens. When an id is set more than once
// the most recent value wins.
type SparseArray struct {
	b      backing
	n      int
	lastID int64
	sorted bool
}

func newSparseArray(b backing, existing int64) *SparseArray {
	s := &SparseArray{b: b, n: int(existing / listEntrySize), lastID: -1, sorted: true}
	if s.n > 0 {
		s.sorted = false
	}
	return s
}

// NewSparseArray creates an array store on the Go heap.
func NewSparseArray() *SparseArray {
	return newSparseArray(newMemBacking(nil), 0)
}

// NewSparseMmapArray creates an array store in anonymous memory.
func NewSparseMmapArray() (*SparseArray, error) {
	b, err := newAnonMmapBacking(nil)
	if err != nil {
		return nil, err
	}
	return newSparseArray(b, 0), nil
}

// OpenSparseFileArray creates an array store in a memory mapped file. An
// existing list dump at path is picked up, and on Close the file is left in
// list dump layout.
func OpenSparseFileArray(path string) (*SparseArray, error) {
	b, existing, err := openFileMmapBacking(path, nil)
	if err != nil {
		return nil, err
	}
	return newSparseArray(b, existing), nil
}

func (s *SparseArray) record(i int) []byte {
	off := i * listEntrySize
	return s.b.Bytes()[off : off+listEntrySize]
}

func (s *SparseArray) idAt(i int) int64 {
	return int64(binary.LittleEndian.Uint64(s.record(i)))
}

func (s *SparseArray) Set(id int64, loc Location) error {
	if id < 0 {
		return ErrInvalidID
	}
	if err := s.b.Grow((s.n + 1) * listEntrySize); err != nil {
		return err
	}
	rec := s.record(s.n)
	binary.LittleEndian.PutUint64(rec, uint64(id))
	putLocation(rec[8:], loc)
	s.n++

	if id < s.lastID {
		s.sorted = false
	}
	s.lastID = id
	return nil
}

func (s *SparseArray) sort() {
	if s.sorted {
		return
	}
	sort.Stable(recordSorter{s})
	s.sorted = true
	if s.n > 0 {
		s.lastID = s.idAt(s.n - 1)
	}
}

func (s *SparseArray) Get(id int64) (Location, error) {
	if id < 0 {
		return Undefined, ErrNotFound
	}
	s.sort()
	// last record with this id
	i := sort.Search(s.n, func(i int) bool { return s.idAt(i) > id })
	if i == 0 || s.idAt(i-1) != id {
		return Undefined, ErrNotFound
	}
	return readLocation(s.record(i - 1)[8:]), nil
}

// Len returns the number of records, counting repeated ids.
func (s *SparseArray) Len() int { return s.n }

func (s *SparseArray) Dump(w io.Writer) error {
	s.sort()
	return dumpList(w, func(visit visitFunc) error {
		for i := 0; i < s.n; i++ {
			id := s.idAt(i)
			if i+1 < s.n && s.idAt(i+1) == id {
				continue
			}
			if err := visit(id, readLocation(s.record(i)[8:])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SparseArray) Close() error {
	s.sort()
	return s.b.Close(int64(s.n) * listEntrySize)
}

type recordSorter struct{ s *SparseArray }

func (r recordSorter) Len() int           { return r.s.n }
func (r recordSorter) Less(i, j int) bool { return r.s.idAt(i) < r.s.idAt(j) }
func (r recordSorter) Swap(i, j int) {
	var tmp [listEntrySize]byte
	a, b := r.s.record(i), r.s.record(j)
	copy(tmp[:], a)
	copy(a, b)
	copy(b, tmp[:])
}
