package feature

import (
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
)

// Options configure a Writer
type Options struct {
	// Prefix for metadata property names, "@" when empty
	Prefix string
	// Threshold is the buffer size above which MaybeFlush writes, 1 MiB when 0
	Threshold int
}

// Stats counts writer output
type Stats struct {
	Features int64
	Flushes  int64
	Bytes    int64
}

// Writer buffers encoded features and writes them to the output in large
// chunks. A feature is fully encoded before it is added to the buffer, so a
// failed encoding never leaves a partial line behind.
type Writer struct {
	out       io.Writer
	names     AttributeNames
	threshold int
	buf       []byte
	scratch   []byte
	stats     Stats
}

// NewWriter creates a writer on out
func NewWriter(out io.Writer, opts Options) *Writer {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Writer{
		out:       out,
		names:     NewAttributeNames(opts.Prefix),
		threshold: opts.Threshold,
		buf:       make([]byte, 0, opts.Threshold+64*1024),
	}
}

// Emit encodes f and appends it to the buffer
func (w *Writer) Emit(f Feature) error {
	b, err := w.encode(w.scratch[:0], f)
	if err != nil {
		return err
	}
	w.scratch = b
	w.buf = append(w.buf, b...)
	w.stats.Features++
	return nil
}

func (w *Writer) encode(b []byte, f Feature) ([]byte, error) {
	geometry, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}

	b = append(b, `{"type":"Feature"`...)
	if f.ID != "" {
		b = append(b, `,"id":`...)
		if b, err = appendString(b, f.ID); err != nil {
			return nil, err
		}
	}
	b = append(b, `,"geometry":`...)
	b = append(b, geometry...)
	b = append(b, `,"properties":{`...)

	n := w.names
	if b, err = appendKey(b, n.ID, true); err != nil {
		return nil, err
	}
	b = strconv.AppendInt(b, f.ObjectID, 10)

	if b, err = appendStringProperty(b, n.Type, f.ObjectType); err != nil {
		return nil, err
	}

	if b, err = appendKey(b, n.Version, false); err != nil {
		return nil, err
	}
	b = strconv.AppendInt(b, int64(f.Version), 10)

	if b, err = appendKey(b, n.Changeset, false); err != nil {
		return nil, err
	}
	b = strconv.AppendInt(b, f.Changeset, 10)

	if b, err = appendKey(b, n.UID, false); err != nil {
		return nil, err
	}
	b = strconv.AppendInt(b, f.UID, 10)

	if b, err = appendStringProperty(b, n.User, f.User); err != nil {
		return nil, err
	}

	if b, err = appendKey(b, n.Timestamp, false); err != nil {
		return nil, err
	}
	var ts int64
	if !f.Timestamp.IsZero() {
		ts = f.Timestamp.Unix()
	}
	b = strconv.AppendInt(b, ts, 10)

	for _, tag := range f.Tags {
		if b, err = appendStringProperty(b, tag.Key, tag.Value); err != nil {
			return nil, err
		}
	}
	for _, p := range f.Extra {
		if b, err = appendStringProperty(b, p.Key, p.Value); err != nil {
			return nil, err
		}
	}

	b = append(b, "}}\n"...)
	return b, nil
}

func appendString(b []byte, s string) ([]byte, error) {
	enc, err := json.MarshalNoEscape(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string: %w", err)
	}
	return append(b, enc...), nil
}

func appendKey(b []byte, key string, first bool) ([]byte, error) {
	if !first {
		b = append(b, ',')
	}
	b, err := appendString(b, key)
	if err != nil {
		return nil, err
	}
	return append(b, ':'), nil
}

func appendStringProperty(b []byte, key, value string) ([]byte, error) {
	b, err := appendKey(b, key, false)
	if err != nil {
		return nil, err
	}
	return appendString(b, value)
}

// Buffered returns the number of bytes waiting to be written
func (w *Writer) Buffered() int {
	return len(w.buf)
}

// MaybeFlush writes the buffer if it has grown past the threshold
func (w *Writer) MaybeFlush() error {
	if len(w.buf) > w.threshold {
		return w.Flush()
	}
	return nil
}

// Flush writes the whole buffer in one call
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	n, err := w.out.Write(w.buf)
	w.stats.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write features: %w", err)
	}
	if n != len(w.buf) {
		return fmt.Errorf("failed to write features: %w", io.ErrShortWrite)
	}
	w.stats.Flushes++
	w.buf = w.buf[:0]
	return nil
}

// Close flushes whatever is left
func (w *Writer) Close() error {
	return w.Flush()
}

// Stats returns output counters
func (w *Writer) Stats() Stats {
	return w.stats
}
