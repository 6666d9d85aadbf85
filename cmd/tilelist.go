package cmd

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/config"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/osmchange"
)

var tileListCfg = config.DefaultTileListConfig()

var tileListCmd = &cobra.Command{
	Use:   "tilelist <changes.osc.gz>",
	Short: "List the tiles touched by an OsmChange file",
	Long: `List every tile touched by the nodes and ways of an OsmChange file.

Previous node locations come from the location store written by an earlier
export (--dump or a file backed store), new ones from the change file. Both
count, so the list covers where objects were and where they are now.

Tiles are written sorted, one "x y" per line ("z x y" with --with-zoom).`,
	Args: cobra.ExactArgs(1),
	Run:  runTileList,
}

func init() {
	rootCmd.AddCommand(tileListCmd)

	f := tileListCmd.Flags()
	f.StringVarP(&tileListCfg.LocationStore, "location-store", "l", tileListCfg.LocationStore, "Location store of the previous export, type[,path]")
	f.Uint32VarP(&tileListCfg.Zoom, "zoom", "z", tileListCfg.Zoom, "Zoom level of the tiles")
	f.BoolVar(&tileListCfg.WithZoom, "with-zoom", false, "Write the zoom level in front of each tile")
	f.StringVarP(&tileListCfg.OutputFile, "output", "o", tileListCfg.OutputFile, "Output file, - for stdout")
}

func runTileList(cmd *cobra.Command, args []string) {
	tileListCfg.ChangeFile = args[0]
	log := logger.Get()

	if err := tileListCfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	count, err := tileList(ctx, tileListCfg)
	if err != nil {
		exitWithError("tile list failed", err)
	}

	log.Info("Tile list complete",
		zap.Int("tiles", count),
		zap.Duration("total_time", time.Since(start).Round(time.Millisecond)))
}

func tileList(ctx context.Context, cfg *config.TileListConfig) (count int, err error) {
	store, err := locations.New(cfg.LocationStore)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	diff := osmchange.NewTileDiff(store, cfg.Zoom)
	defer func() {
		err = multierr.Append(err, diff.Close())
	}()

	parser := osmchange.NewParser()
	changes, errs := parser.ParseFile(ctx, cfg.ChangeFile)
	if err := diff.Consume(ctx, changes, errs); err != nil {
		return 0, err
	}

	stats := parser.Stats()
	logger.Get().Info("OSC file parsed",
		zap.Int64("nodes_created", stats.NodesCreated),
		zap.Int64("nodes_modified", stats.NodesModified),
		zap.Int64("nodes_deleted", stats.NodesDeleted),
		zap.Int64("ways_created", stats.WaysCreated),
		zap.Int64("ways_modified", stats.WaysModified),
		zap.Int64("ways_deleted", stats.WaysDeleted),
		zap.Int64("total", stats.Total()))

	out, closeOut, err := openOutput(cfg.OutputFile)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, closeOut())
	}()

	tracker := diff.Tracker()
	if err := tracker.WriteTo(out, cfg.WithZoom); err != nil {
		return 0, err
	}
	return tracker.Count(), nil
}
