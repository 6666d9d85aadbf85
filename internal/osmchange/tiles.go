package osmchange

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/tile"
)

// TileDiff collects the tiles a change file touches. For nodes both the
// previous location (from the store of the last export) and the new one
// count. For ways every member node counts, with its previous location and
// any location the change file itself provides.
type TileDiff struct {
	old     locations.Store
	tmp     locations.Store
	tracker *tile.Tracker
}

// NewTileDiff creates a diff against the locations in old, at zoom
func NewTileDiff(old locations.Store, zoom uint32) *TileDiff {
	return &TileDiff{
		old:     old,
		tmp:     locations.NewSparseArray(),
		tracker: tile.NewTracker(zoom),
	}
}

// Apply adds the tiles of one change
func (d *TileDiff) Apply(c Change) error {
	switch {
	case c.Node != nil:
		id := int64(c.Node.ID)
		if c.Location.IsDefined() {
			if err := d.tmp.Set(id, c.Location); err != nil && !errors.Is(err, locations.ErrInvalidID) {
				return err
			}
		}
		if err := d.addStored(d.old, id); err != nil {
			return err
		}
		d.tracker.AddLocation(c.Location)
	case c.Way != nil:
		for _, n := range c.Way.Nodes {
			if err := d.addStored(d.old, int64(n.ID)); err != nil {
				return err
			}
			if err := d.addStored(d.tmp, int64(n.ID)); err != nil {
				return err
			}
		}
	}
	return nil
}

// addStored adds the tile of a stored location, ignoring unknown ids
func (d *TileDiff) addStored(store locations.Store, id int64) error {
	loc, err := store.Get(id)
	if errors.Is(err, locations.ErrNotFound) || errors.Is(err, locations.ErrInvalidID) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up node %d: %w", id, err)
	}
	d.tracker.AddLocation(loc)
	return nil
}

// Tracker returns the collected tiles
func (d *TileDiff) Tracker() *tile.Tracker {
	return d.tracker
}

// Close releases the temporary store. The old store belongs to the caller.
func (d *TileDiff) Close() error {
	return d.tmp.Close()
}

// Consume applies every change from a parser stream and returns the
// first parse or lookup error
func (d *TileDiff) Consume(ctx context.Context, changes <-chan Change, errs <-chan error) error {
	var applyErr error
	for c := range changes {
		if applyErr != nil {
			continue
		}
		applyErr = d.Apply(c)
	}
	if applyErr != nil {
		return applyErr
	}

	for err := range errs {
		if err != nil {
			return fmt.Errorf("OSC parsing failed: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Get().Debug("Change file applied",
		zap.Int("tiles", d.tracker.Count()))
	return nil
}
