package source

import (
	"context"

	"github.com/paulmach/osm"
)

// kindScanner drops objects of unwanted kinds
type kindScanner struct {
	osm.Scanner
	kinds Kinds
}

// Filter wraps s so only objects of the selected kinds are delivered
func Filter(s osm.Scanner, kinds Kinds) osm.Scanner {
	if kinds == All {
		return s
	}
	return &kindScanner{Scanner: s, kinds: kinds}
}

func (k *kindScanner) Scan() bool {
	for k.Scanner.Scan() {
		if k.kinds.accepts(k.Scanner.Object()) {
			return true
		}
	}
	return false
}

// Objects is an in-memory source, mostly for tests
type Objects []osm.Object

// Open scans the objects in order
func (o Objects) Open(ctx context.Context, kinds Kinds) (osm.Scanner, error) {
	return Filter(&sliceScanner{ctx: ctx, objects: o, pos: -1}, kinds), nil
}

type sliceScanner struct {
	ctx     context.Context
	objects []osm.Object
	pos     int
	err     error
}

func (s *sliceScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	s.pos++
	return s.pos < len(s.objects)
}

func (s *sliceScanner) Object() osm.Object {
	return s.objects[s.pos]
}

func (s *sliceScanner) Err() error { return s.err }

func (s *sliceScanner) Close() error { return nil }
