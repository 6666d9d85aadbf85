package tile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

// Set is a set of tiles. The zero value is an empty set, which filters
// nothing.
type Set struct {
	tiles map[Tile]struct{}
}

// NewSet creates a set holding tiles
func NewSet(tiles ...Tile) *Set {
	s := &Set{tiles: make(map[Tile]struct{}, len(tiles))}
	for _, t := range tiles {
		s.Add(t)
	}
	return s
}

// Add inserts a tile
func (s *Set) Add(t Tile) {
	if s.tiles == nil {
		s.tiles = make(map[Tile]struct{})
	}
	s.tiles[t] = struct{}{}
}

// Contains reports whether t is in the set
func (s *Set) Contains(t Tile) bool {
	_, ok := s.tiles[t]
	return ok
}

// Len returns the number of tiles
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tiles)
}

// Empty reports whether the set has no tiles
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// ListFormat selects how numbers in a tile list are grouped
type ListFormat int

const (
	// Triples groups numbers as "z x y"
	Triples ListFormat = iota
	// Pairs groups numbers as "x y" at the filter zoom, the default output
	// of the tilelist command
	Pairs
)

// ParseListFormat converts "zxy" or "xy"
func ParseListFormat(s string) (ListFormat, error) {
	switch s {
	case "zxy", "":
		return Triples, nil
	case "xy":
		return Pairs, nil
	}
	return Triples, fmt.Errorf("unknown tile list format %q, expected zxy or xy", s)
}

func (f ListFormat) String() string {
	if f == Pairs {
		return "xy"
	}
	return "zxy"
}

// LoadSet reads a tile list file. See ParseSet for the format.
func LoadSet(path string, zoom uint32, format ListFormat) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tile file: %w", err)
	}
	defer f.Close()

	set, err := ParseSet(f, zoom, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// ParseSet reads a stream of whitespace separated numbers, grouped as
// "z x y" triples or "x y" pairs (zoom taken from zoom) depending on
// format. Groups may span lines or share one. A single "z/x/y" token is a
// tile in either format. '#' starts a comment running to the end of the
// line. Tiles at other zoom levels are kept but can never match, so they
// are counted and logged.
func ParseSet(r io.Reader, zoom uint32, format ListFormat) (*Set, error) {
	size := 3
	if format == Pairs {
		size = 2
	}

	set := NewSet()
	otherZoom := 0
	add := func(t Tile) error {
		if err := checkTile(t); err != nil {
			return err
		}
		if t.Z != zoom {
			otherZoom++
		}
		set.Add(t)
		return nil
	}

	var group []uint32
	groupLine := 0

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		for _, token := range strings.Fields(line) {
			if strings.Contains(token, "/") {
				if len(group) > 0 {
					return nil, fmt.Errorf("line %d: tile %q inside an incomplete group", lineNo, token)
				}
				t, err := parseSlashed(token)
				if err == nil {
					err = add(t)
				}
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				continue
			}

			v, err := strconv.ParseUint(token, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: malformed tile number %q: %w", lineNo, token, err)
			}
			if len(group) == 0 {
				groupLine = lineNo
			}
			group = append(group, uint32(v))
			if len(group) < size {
				continue
			}

			t := Tile{Z: zoom, X: group[0], Y: group[1]}
			if size == 3 {
				t = Tile{Z: group[0], X: group[1], Y: group[2]}
			}
			group = group[:0]
			if err := add(t); err != nil {
				return nil, fmt.Errorf("line %d: %w", groupLine, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tile list: %w", err)
	}
	if len(group) > 0 {
		return nil, fmt.Errorf("line %d: incomplete tile, expected %q", groupLine, format.pattern())
	}

	if otherZoom > 0 {
		logger.Get().Warn("Tile list contains tiles at other zoom levels, they will never match",
			zap.Int("count", otherZoom),
			zap.Uint32("zoom", zoom))
	}
	return set, nil
}

func (f ListFormat) pattern() string {
	if f == Pairs {
		return "x y"
	}
	return "z x y"
}

func parseSlashed(token string) (Tile, error) {
	fields := strings.Split(token, "/")
	if len(fields) != 3 {
		return Tile{}, fmt.Errorf("malformed tile %q, expected z/x/y", token)
	}
	var nums [3]uint32
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return Tile{}, fmt.Errorf("malformed tile %q: %w", token, err)
		}
		nums[i] = uint32(v)
	}
	return Tile{Z: nums[0], X: nums[1], Y: nums[2]}, nil
}

func checkTile(t Tile) error {
	if t.Z > MaxZoom {
		return fmt.Errorf("zoom %d out of range (max %d)", t.Z, MaxZoom)
	}
	n := uint64(1) << t.Z
	if uint64(t.X) >= n || uint64(t.Y) >= n {
		return fmt.Errorf("tile %s outside the grid", t)
	}
	return nil
}
