// Package diag samples host resource usage so operators can tell
// whether the box serving the dashboard is itself struggling.
package diag

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is one host resource sample.
type Stats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemUsedMB     uint64    `json:"mem_used_mb"`
	MemTotalMB    uint64    `json:"mem_total_mb"`
	MemPercent    float64   `json:"mem_percent"`
	UptimeSeconds uint64    `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	SampledAt     time.Time `json:"sampled_at"`
}

// Sampler takes periodic host samples and keeps the most recent one.
type Sampler struct {
	interval time.Duration

	mu     sync.RWMutex
	latest *Stats
}

func NewSampler(interval time.Duration) *Sampler {
	return &Sampler{interval: interval}
}

// Latest returns the most recent sample, or nil before the first one.
func (s *Sampler) Latest() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Run samples immediately and then on every tick until ctx is
// cancelled.
func (s *Sampler) Run(ctx context.Context) {
	s.sample(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	stats := Stats{
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}

	// Interval 0 measures since the previous call, so the sampler
	// never blocks; the first sample's CPU figure may read as zero.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		log.Printf("[diag] cpu sample failed: %v", err)
	} else if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Printf("[diag] memory sample failed: %v", err)
	} else {
		stats.MemUsedMB = vm.Used >> 20
		stats.MemTotalMB = vm.Total >> 20
		stats.MemPercent = vm.UsedPercent
	}

	if up, err := host.UptimeWithContext(ctx); err != nil {
		log.Printf("[diag] uptime read failed: %v", err)
	} else {
		stats.UptimeSeconds = up
	}

	s.mu.Lock()
	s.latest = &stats
	s.mu.Unlock()
}
