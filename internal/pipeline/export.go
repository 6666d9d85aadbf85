package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/osm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/metrics"
	"github.com/wegman-software/osm2geojson-go/internal/source"
)

// RunConfig holds driver settings
type RunConfig struct {
	// MetricsInterval enables the resource sampler; 0 disables it
	MetricsInterval time.Duration
	// ProgressInterval is the spacing of progress log lines, 10s when 0
	ProgressInterval time.Duration
}

// Run executes both passes over src through c and returns the final
// counts. The metrics sampler runs next to the export and stops with it.
func Run(ctx context.Context, src source.Source, c *Collector, cfg RunConfig) (Stats, error) {
	log := logger.Get()
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 10 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	var collector *metrics.Collector
	if cfg.MetricsInterval > 0 {
		collector = metrics.NewCollector(cfg.MetricsInterval, log)
		g.Go(func() error {
			return collector.Run(metricsCtx)
		})
		log.Info("System metrics collection started",
			zap.Duration("interval", cfg.MetricsInterval))
	}

	var stats Stats
	g.Go(func() error {
		defer stopMetrics()
		var err error
		stats, err = export(gctx, src, c, cfg)
		return err
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if collector != nil {
		if last := collector.Last(); last != nil {
			log.Info("Resource usage at end of export",
				zap.String("proc_rss", humanize.IBytes(last.ProcessRSS)),
				zap.String("proc_read", humanize.IBytes(last.ProcessReadBytes)),
				zap.String("proc_write", humanize.IBytes(last.ProcessWriteBytes)))
		}
	}
	return stats, nil
}

func export(ctx context.Context, src source.Source, c *Collector, cfg RunConfig) (Stats, error) {
	log := logger.Get()
	start := time.Now()

	log.Info("Pass 1: collecting multipolygon relations")
	err := scan(ctx, src, source.RelationsOnly, func(o osm.Object) error {
		if rel, ok := o.(*osm.Relation); ok {
			return c.Relation(rel)
		}
		return nil
	})
	if err != nil {
		return c.Stats(), fmt.Errorf("pass 1 failed: %w", err)
	}
	if err := c.StartResolving(); err != nil {
		return c.Stats(), err
	}
	log.Info("Pass 1 complete",
		zap.Int64("relations", c.stats.Relations),
		zap.Int64("multipolygons", c.stats.Multipolygons),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	pass2 := time.Now()
	log.Info("Pass 2: writing features")
	progress := NewProgressTracker(cfg.ProgressInterval, "Export progress")
	err = scan(ctx, src, source.All, func(o osm.Object) error {
		if err := c.Object(o); err != nil {
			return err
		}
		progress.Tick(c.Stats)
		return nil
	})
	if err != nil {
		return c.Stats(), fmt.Errorf("pass 2 failed: %w", err)
	}

	stats, err := c.Finish()
	if err != nil {
		return stats, err
	}
	log.Info("Pass 2 complete",
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("points", stats.Points),
		zap.Int64("lines", stats.Lines),
		zap.Int64("polygons", stats.Polygons),
		zap.Int64("areas", stats.Areas),
		zap.String("rate", FormatThroughput(progress.Rate())),
		zap.Duration("duration", time.Since(pass2).Round(time.Millisecond)))
	return stats, nil
}

// scan opens src, hands every object to fn and closes the scanner.
// Cancellation is checked between objects.
func scan(ctx context.Context, src source.Source, kinds source.Kinds, fn func(osm.Object) error) (err error) {
	s, err := src.Open(ctx, kinds)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	for s.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(s.Object()); err != nil {
			return err
		}
	}
	return s.Err()
}
