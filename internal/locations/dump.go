package locations

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// listEntrySize is the size of one list dump record: id (uint64) + location
const listEntrySize = 8 + locationSize

// visitFunc is called for every stored entry in ascending id order
type visitFunc func(id int64, loc Location) error

// listWriter writes the sorted (id, location) list layout
type listWriter struct {
	w   *bufio.Writer
	rec [listEntrySize]byte
}

func newListWriter(w io.Writer) *listWriter {
	return &listWriter{w: bufio.NewWriterSize(w, 1<<20)}
}

func (l *listWriter) put(id int64, loc Location) error {
	binary.LittleEndian.PutUint64(l.rec[0:], uint64(id))
	putLocation(l.rec[8:], loc)
	_, err := l.w.Write(l.rec[:])
	return err
}

func (l *listWriter) flush() error {
	return l.w.Flush()
}

// dumpList writes every entry produced by each as a sorted list
func dumpList(w io.Writer, each func(visitFunc) error) error {
	lw := newListWriter(w)
	if err := each(lw.put); err != nil {
		return err
	}
	return lw.flush()
}

// LoadArray reads an array dump from r into store and returns the number of
// defined locations loaded.
func LoadArray(r io.Reader, store Store) (int, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var rec [locationSize]byte
	loaded := 0
	for id := int64(0); ; id++ {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return loaded, nil
			}
			return loaded, fmt.Errorf("array dump: truncated record at id %d: %w", id, err)
		}
		loc := readLocation(rec[:])
		if !loc.IsDefined() {
			continue
		}
		if err := store.Set(id, loc); err != nil {
			return loaded, err
		}
		loaded++
	}
}

// LoadList reads a list dump from r into store and returns the number of
// entries loaded.
func LoadList(r io.Reader, store Store) (int, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var rec [listEntrySize]byte
	loaded := 0
	for {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return loaded, nil
			}
			return loaded, fmt.Errorf("list dump: truncated record after %d entries: %w", loaded, err)
		}
		id := int64(binary.LittleEndian.Uint64(rec[0:]))
		if err := store.Set(id, readLocation(rec[8:])); err != nil {
			return loaded, err
		}
		loaded++
	}
}

// Load reads a dump in the given layout into store.
func Load(r io.Reader, layout Layout, store Store) (int, error) {
	if layout == LayoutArray {
		return LoadArray(r, store)
	}
	return LoadList(r, store)
}
