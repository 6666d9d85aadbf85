package locations

import (
	"io"
)

// DenseArray stores locations positionally, indexed by node id. Best when
// ids are dense, as in planet files and large extracts. Unset slots hold
// Undefined.
type DenseArray struct {
	b     backing
	size  int64 // highest id + 1
	count int
}

func newDenseArray(b backing, existing int64) *DenseArray {
	d := &DenseArray{b: b, size: existing / locationSize}
	data := b.Bytes()
	for id := int64(0); id < d.size; id++ {
		off := id * locationSize
		if readLocation(data[off:off+locationSize]).IsDefined() {
			d.count++
		}
	}
	return d
}

// NewDenseArray creates a positional store on the Go heap.
func NewDenseArray() *DenseArray {
	return newDenseArray(newMemBacking(undefinedBytes), 0)
}

// NewDenseMmapArray creates a positional store in anonymous memory.
func NewDenseMmapArray() (*DenseArray, error) {
	b, err := newAnonMmapBacking(undefinedBytes)
	if err != nil {
		return nil, err
	}
	return newDenseArray(b, 0), nil
}

// OpenDenseFileArray creates a positional store in a memory mapped file. An
// existing array dump at path is picked up, and on Close the file is left
// in array dump layout.
func OpenDenseFileArray(path string) (*DenseArray, error) {
	b, existing, err := openFileMmapBacking(path, undefinedBytes)
	if err != nil {
		return nil, err
	}
	return newDenseArray(b, existing), nil
}

func (d *DenseArray) Set(id int64, loc Location) error {
	if id < 0 {
		return ErrInvalidID
	}
	off := id * locationSize
	if err := d.b.Grow(int(off + locationSize)); err != nil {
		return err
	}
	slot := d.b.Bytes()[off : off+locationSize]
	if !readLocation(slot).IsDefined() && loc.IsDefined() {
		d.count++
	}
	putLocation(slot, loc)
	if id >= d.size {
		d.size = id + 1
	}
	return nil
}

func (d *DenseArray) Get(id int64) (Location, error) {
	if id < 0 || id >= d.size {
		return Undefined, ErrNotFound
	}
	off := id * locationSize
	loc := readLocation(d.b.Bytes()[off : off+locationSize])
	if !loc.IsDefined() {
		return Undefined, ErrNotFound
	}
	return loc, nil
}

// Len returns the number of defined slots.
func (d *DenseArray) Len() int { return d.count }

// Dump writes the used part of the array as is; it already is an array dump.
func (d *DenseArray) Dump(w io.Writer) error {
	_, err := w.Write(d.b.Bytes()[:d.size*locationSize])
	return err
}

func (d *DenseArray) Close() error {
	return d.b.Close(d.size * locationSize)
}
