package locations

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/multierr"
)

// minChunk is the smallest allocation step for growable backings (1 MiB)
const minChunk = 1 << 20

// backing is a growable byte region that array stores are laid out on
type backing interface {
	// Bytes returns the whole allocated region
	Bytes() []byte
	// Grow makes Bytes() at least n bytes long, filling new space with the
	// backing's fill pattern
	Grow(n int) error
	// Close releases the region; used is the number of meaningful bytes,
	// file backings are truncated to it
	Close(used int64) error
}

func nextCapacity(cur, need int) int {
	c := cur * 2
	if c < minChunk {
		c = minChunk
	}
	for c < need {
		c *= 2
	}
	return c
}

// fillPattern repeats pattern over b; a nil pattern leaves the zero bytes
func fillPattern(b, pattern []byte) {
	if len(pattern) == 0 {
		return
	}
	for i := 0; i+len(pattern) <= len(b); i += len(pattern) {
		copy(b[i:], pattern)
	}
}

// memBacking keeps the region on the Go heap
type memBacking struct {
	buf  []byte
	fill []byte
}

func newMemBacking(fill []byte) *memBacking {
	return &memBacking{fill: fill}
}

func (m *memBacking) Bytes() []byte { return m.buf }

func (m *memBacking) Grow(n int) error {
	if n <= len(m.buf) {
		return nil
	}
	buf := make([]byte, nextCapacity(len(m.buf), n))
	copy(buf, m.buf)
	fillPattern(buf[len(m.buf):], m.fill)
	m.buf = buf
	return nil
}

func (m *memBacking) Close(int64) error {
	m.buf = nil
	return nil
}

// mmapBacking keeps the region in a memory map, either anonymous or backed
// by a file. Growing a file-backed map truncates the file to the new size
// and maps it again.
type mmapBacking struct {
	file *os.File // nil for anonymous maps
	data mmap.MMap
	fill []byte
}

func newAnonMmapBacking(fill []byte) (*mmapBacking, error) {
	m := &mmapBacking{fill: fill}
	if err := m.Grow(minChunk); err != nil {
		return nil, err
	}
	return m, nil
}

// openFileMmapBacking maps path, creating it if needed. Existing content is
// kept and its length returned so callers can restore their state.
func openFileMmapBacking(path string, fill []byte) (*mmapBacking, int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open location file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat location file: %w", err)
	}
	existing := info.Size()

	m := &mmapBacking{file: f, fill: fill}
	if existing > 0 {
		m.data, err = mmap.Map(f, mmap.RDWR, 0)
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("failed to mmap location file: %w", err)
		}
	}
	if err := m.Grow(minChunk); err != nil {
		m.Close(existing)
		return nil, 0, err
	}
	return m, existing, nil
}

func (m *mmapBacking) Bytes() []byte { return m.data }

func (m *mmapBacking) Grow(n int) error {
	old := len(m.data)
	if n <= old {
		return nil
	}
	size := nextCapacity(old, n)

	if m.file == nil {
		data, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			return fmt.Errorf("failed to grow anonymous map to %d bytes: %w", size, err)
		}
		if m.data != nil {
			copy(data, m.data)
			if err := m.data.Unmap(); err != nil {
				data.Unmap()
				return err
			}
		}
		m.data = data
	} else {
		if m.data != nil {
			if err := m.data.Unmap(); err != nil {
				return err
			}
			m.data = nil
		}
		// Truncate to the new size (sparse file on Linux), then map it again
		if err := m.file.Truncate(int64(size)); err != nil {
			return fmt.Errorf("failed to truncate location file: %w", err)
		}
		data, err := mmap.Map(m.file, mmap.RDWR, 0)
		if err != nil {
			return fmt.Errorf("failed to mmap location file: %w", err)
		}
		m.data = data
	}

	fillPattern(m.data[old:], m.fill)
	return nil
}

func (m *mmapBacking) Close(used int64) error {
	var err error
	if m.data != nil {
		if m.file != nil {
			err = multierr.Append(err, m.data.Flush())
		}
		err = multierr.Append(err, m.data.Unmap())
		m.data = nil
	}
	if m.file != nil {
		err = multierr.Append(err, m.file.Truncate(used))
		err = multierr.Append(err, m.file.Close())
		m.file = nil
	}
	return err
}
