// Package metrics samples process and system resource usage while an
// export runs and logs it periodically.
package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Sample is one snapshot of resource usage
type Sample struct {
	ProcessCPUPercent float64 // can exceed 100 on multi-core machines
	ProcessRSS        uint64
	ProcessReadBytes  uint64
	ProcessWriteBytes uint64
	SystemCPUPercent  float64
	MemoryUsed        uint64
	MemoryTotal       uint64
	MemoryPercent     float64
	Timestamp         time.Time
}

// Collector periodically samples and logs resource usage
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu   sync.RWMutex
	last *Sample
}

// NewCollector creates a collector logging every interval (at least one second)
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = time.Second
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debug("Process metrics unavailable", zap.Error(err))
	}

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Run samples until ctx is cancelled. It never fails; the error return
// lets it run inside an errgroup.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// First sample initializes the CPU baselines
	c.Collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return nil
		case <-ticker.C:
			c.log(c.Collect())
		}
	}
}

// Last returns the most recent sample, or nil before the first one
func (c *Collector) Last() *Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Collect takes a sample without logging it
func (c *Collector) Collect() *Sample {
	s := &Sample{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.SystemCPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if mi, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSS = mi.RSS
		}
		if ioc, err := c.proc.IOCounters(); err == nil {
			s.ProcessReadBytes = ioc.ReadBytes
			s.ProcessWriteBytes = ioc.WriteBytes
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryUsed = vmem.Used
		s.MemoryTotal = vmem.Total
		s.MemoryPercent = vmem.UsedPercent
	}

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
	return s
}

func (c *Collector) log(s *Sample) {
	c.logger.Info("System metrics",
		zap.Float64("proc_cpu", round1(s.ProcessCPUPercent)),
		zap.String("proc_rss", humanize.IBytes(s.ProcessRSS)),
		zap.String("proc_read", humanize.IBytes(s.ProcessReadBytes)),
		zap.String("proc_write", humanize.IBytes(s.ProcessWriteBytes)),
		zap.Float64("sys_cpu", round1(s.SystemCPUPercent)),
		zap.Float64("mem_pct", round1(s.MemoryPercent)),
		zap.String("mem_used", humanize.IBytes(s.MemoryUsed)),
	)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
