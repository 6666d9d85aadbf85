package metrics

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCollect(t *testing.T) {
	c := NewCollector(time.Millisecond, zap.NewNop())
	if c.interval != time.Second {
		t.Errorf("interval = %v, want clamped to 1s", c.interval)
	}

	if c.Last() != nil {
		t.Error("Last() should be nil before the first sample")
	}
	s := c.Collect()
	if s == nil || c.Last() != s {
		t.Fatal("Collect() should store the sample")
	}
	if s.MemoryTotal == 0 {
		t.Error("expected total memory to be reported")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCollector(time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRound1(t *testing.T) {
	if got := round1(12.345); got != 12.3 {
		t.Errorf("round1(12.345) = %v", got)
	}
}
