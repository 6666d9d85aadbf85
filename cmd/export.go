package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/classify"
	"github.com/wegman-software/osm2geojson-go/internal/config"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/pipeline"
	"github.com/wegman-software/osm2geojson-go/internal/report"
	"github.com/wegman-software/osm2geojson-go/internal/source"
	"github.com/wegman-software/osm2geojson-go/internal/style"
	"github.com/wegman-software/osm2geojson-go/internal/tile"
)

var exportCmd = &cobra.Command{
	Use:   "export <input.osm.pbf>",
	Short: "Export OSM data as GeoJSON features, one per line",
	Long: `Export an OSM file as newline-delimited GeoJSON:

  1. Pass 1: Read relations and index multipolygon members
  2. Pass 2: Store node locations, write points, lines and polygons, and
     write each multipolygon as soon as its last member way has been read

Objects whose geometry cannot be built are skipped, counted and optionally
listed in the error file.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file, - for stdout")
	f.StringVarP(&cfg.ErrorFile, "error-file", "e", "", "Write objects with geometry errors to this file")
	f.BoolVarP(&cfg.WithID, "with-id", "i", false, "Add a unique id to each feature")
	f.StringVarP(&cfg.AttrPrefix, "attr-prefix", "a", cfg.AttrPrefix, "Prefix of metadata properties")
	f.StringVarP(&cfg.LocationStore, "location-store", "l", "", "Location store type[,path] (see 'stores')")
	f.StringVarP(&cfg.Nodes, "nodes", "n", cfg.Nodes, "Are node ids sparse or dense?")
	f.StringVarP(&cfg.NodesAttribute, "nodes-attribute", "N", "", "Add a property with this name listing each way's node ids")
	f.StringVarP(&cfg.DumpFile, "dump", "d", "", "Dump the location store to this file after the run")
	f.BoolVarP(&cfg.Polygons, "polygons", "p", false, "Write closed ways matching the area rules as polygons")
	f.BoolVar(&cfg.WayAreas, "way-areas", false, "Also write multipolygon areas for closed ways outside relations")
	f.StringVar(&cfg.RulesFile, "rules", "", "YAML area rule table replacing the built-in one")
	f.StringVarP(&cfg.StyleFile, "style", "S", "", "Style YAML file for tag filtering")
	f.StringVarP(&cfg.TileFile, "tilefile", "t", "", "Only write objects inside the tiles listed in this file")
	f.StringVar(&cfg.TileFormat, "tile-format", cfg.TileFormat, "Tile file layout: zxy triples or xy pairs at --zoom")
	f.Uint32VarP(&cfg.Zoom, "zoom", "z", cfg.Zoom, "Zoom level of the tile file")
	f.BoolVar(&cfg.Progress, "progress", false, "Show a progress bar on stderr")
}

func runExport(cmd *cobra.Command, args []string) {
	cfg.InputFile = args[0]
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	log.Info("Starting export",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputFile),
		zap.String("location_store", cfg.StoreToken()),
		zap.Bool("polygons", cfg.Polygons),
		zap.Int("workers", cfg.Workers))

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	stats, err := export(ctx, cfg)
	if err != nil {
		exitWithError("export failed", err)
	}

	log.Info("Export complete",
		zap.Duration("total_time", time.Since(start).Round(time.Second)),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Int64("features", stats.Features()),
		zap.Int64("geometry_errors", stats.GeometryErrors),
		zap.Int64("invalid_locations", stats.InvalidLocations),
		zap.Int64("bytes", stats.BytesWritten))
}

// export sets up every component from cfg, runs the pipeline and closes
// everything it opened
func export(ctx context.Context, cfg *config.Config) (stats pipeline.Stats, err error) {
	opts, err := collectorOptions(cfg)
	if err != nil {
		return stats, err
	}

	out, closeOut, err := openOutput(cfg.OutputFile)
	if err != nil {
		return stats, err
	}
	defer func() {
		err = multierr.Append(err, closeOut())
	}()

	reporter, err := report.Open(cfg.ErrorFile)
	if err != nil {
		return stats, err
	}
	defer func() {
		err = multierr.Append(err, reporter.Close())
	}()

	store, err := locations.New(cfg.StoreToken())
	if err != nil {
		return stats, err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	writer := feature.NewWriter(out, feature.Options{Prefix: cfg.AttrPrefix})
	collector := pipeline.NewCollector(store, writer, reporter, opts)
	src := &source.File{Path: cfg.InputFile, Workers: cfg.Workers, Progress: cfg.Progress}

	stats, err = pipeline.Run(ctx, src, collector, pipeline.RunConfig{MetricsInterval: cfg.MetricsInterval})
	if err != nil {
		return stats, err
	}

	if cfg.DumpFile != "" {
		if err := dumpStore(store, cfg.DumpFile); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// collectorOptions loads the optional tile, rule and style files
func collectorOptions(cfg *config.Config) (pipeline.Options, error) {
	opts := pipeline.Options{
		WithID:         cfg.WithID,
		NodesAttribute: cfg.NodesAttribute,
		WayAreas:       cfg.WayAreas,
	}

	if cfg.TileFile != "" {
		format, err := tile.ParseListFormat(cfg.TileFormat)
		if err != nil {
			return opts, err
		}
		set, err := tile.LoadSet(cfg.TileFile, cfg.Zoom, format)
		if err != nil {
			return opts, err
		}
		logger.Get().Info("Tile filter loaded",
			zap.String("file", cfg.TileFile),
			zap.Int("tiles", set.Len()),
			zap.Uint32("zoom", cfg.Zoom))
		opts.Filter = &tile.Filter{Set: set, Zoom: cfg.Zoom}
	}

	var rules classify.Rules
	if cfg.RulesFile != "" {
		var err error
		if rules, err = classify.LoadRules(cfg.RulesFile); err != nil {
			return opts, err
		}
	}
	opts.Classifier = classify.New(rules, cfg.Polygons)

	if cfg.StyleFile != "" {
		styleCfg, err := style.LoadConfig(cfg.StyleFile)
		if err != nil {
			return opts, err
		}
		opts.Styles = style.NewFilters(styleCfg)
	}
	return opts, nil
}

// openOutput opens path for writing; "-" is stdout, which is never closed
func openOutput(path string) (io.Writer, func() error, error) {
	if path == config.Stdio {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func dumpStore(store locations.Store, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	if err := store.Dump(w); err != nil {
		return fmt.Errorf("failed to dump locations: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to dump locations: %w", err)
	}

	logger.Get().Info("Location store dumped",
		zap.String("file", path),
		zap.Int("locations", store.Len()))
	return nil
}
