package tile

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

// Tracker collects the tiles touched by a set of locations at one zoom
// level, deduplicated.
type Tracker struct {
	mu      sync.Mutex
	tiles   map[Tile]struct{}
	zoom    uint32
	skipped int
}

// NewTracker creates a tracker for tiles at zoom
func NewTracker(zoom uint32) *Tracker {
	return &Tracker{
		tiles: make(map[Tile]struct{}),
		zoom:  zoom,
	}
}

// AddLocation marks the tile containing loc. Undefined or out-of-range
// locations are ignored.
func (t *Tracker) AddLocation(loc locations.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !loc.IsDefined() || !loc.Valid() {
		t.skipped++
		return
	}
	t.tiles[Of(loc.Lat(), loc.Lon(), t.zoom)] = struct{}{}
}

// Count returns the number of unique tiles
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tiles)
}

// Tiles returns all tracked tiles sorted by x, then y
func (t *Tracker) Tiles() []Tile {
	t.mu.Lock()
	defer t.mu.Unlock()

	tiles := make([]Tile, 0, len(t.tiles))
	for tile := range t.tiles {
		tiles = append(tiles, tile)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Less(tiles[j]) })
	return tiles
}

// WriteTo writes one tile per line as "x y", or "z x y" when withZoom is set.
func (t *Tracker) WriteTo(w io.Writer, withZoom bool) error {
	tiles := t.Tiles()

	bw := bufio.NewWriter(w)
	for _, tile := range tiles {
		if withZoom {
			fmt.Fprintf(bw, "%d %d %d\n", tile.Z, tile.X, tile.Y)
		} else {
			fmt.Fprintf(bw, "%d %d\n", tile.X, tile.Y)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write tile list: %w", err)
	}

	t.mu.Lock()
	skipped := t.skipped
	t.mu.Unlock()

	logger.Get().Info("Wrote dirty tiles",
		zap.Uint32("zoom", t.zoom),
		zap.Int("tiles", len(tiles)),
		zap.Int("skipped_locations", skipped))
	return nil
}
