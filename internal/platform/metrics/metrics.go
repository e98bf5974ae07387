package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks request counters plus a handful of domain counters
// (payroll runs, leave decisions). Cheap enough to sit on the hot path.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu     sync.Mutex
	domain map[string]uint64
}

func New() *Collector {
	return &Collector{domain: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Incr bumps a named domain counter, e.g. "payrollRunsTotal".
func (c *Collector) Incr(name string) {
	c.mu.Lock()
	c.domain[name]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	out := map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
	}
	c.mu.Lock()
	for name, value := range c.domain {
		out[name] = value
	}
	c.mu.Unlock()
	return out
}
