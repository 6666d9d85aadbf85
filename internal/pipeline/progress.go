package pipeline

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/logger"
)

// checkEvery is how many objects pass between clock reads
const checkEvery = 1 << 16

// ProgressTracker logs export progress at a fixed interval
type ProgressTracker struct {
	interval    time.Duration
	description string
	startTime   time.Time
	lastLog     time.Time
	lastCount   int64
	count       int64
}

// NewProgressTracker creates a tracker logging every interval
func NewProgressTracker(interval time.Duration, description string) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		interval:    interval,
		description: description,
		startTime:   now,
		lastLog:     now,
	}
}

// Tick counts one object and logs when the interval has passed
func (p *ProgressTracker) Tick(stats func() Stats) {
	p.count++
	if p.count%checkEvery != 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(p.lastLog)
	if elapsed < p.interval {
		return
	}

	rate := float64(p.count-p.lastCount) / elapsed.Seconds()
	s := stats()
	logger.Get().Info(p.description,
		zap.String("objects", humanize.Comma(p.count)),
		zap.String("rate", FormatThroughput(rate)),
		zap.Int64("features", s.Features()),
		zap.String("written", humanize.IBytes(uint64(s.BytesWritten))),
		zap.Duration("elapsed", now.Sub(p.startTime).Round(time.Second)))

	p.lastLog = now
	p.lastCount = p.count
}

// Count returns the number of objects seen
func (p *ProgressTracker) Count() int64 {
	return p.count
}

// Rate returns the average number of objects per second
func (p *ProgressTracker) Rate() float64 {
	secs := time.Since(p.startTime).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.count) / secs
}

// FormatThroughput formats throughput as human-readable items per second
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}
