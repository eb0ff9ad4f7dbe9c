package jobstats

import (
	"sync"
	"time"
)

// JobReport is a point-in-time view of one job's counters.
type JobReport struct {
	Name          string    `json:"name"`
	Runs          int64     `json:"runs"`
	Items         int64     `json:"items"`
	Failures      int64     `json:"failures"`
	LastSuccessAt time.Time `json:"last_success_at"`
	LastDuration  int64     `json:"last_duration_ms"`
}

// Collector records per-job run statistics. It is injected into every job
// runner instead of living in a process-wide map so tests can isolate it.
type Collector struct {
	mu   sync.Mutex
	jobs map[string]*JobReport
	now  func() time.Time
}

func NewCollector() *Collector {
	return &Collector{
		jobs: make(map[string]*JobReport),
		now:  time.Now,
	}
}

func (c *Collector) RecordRun(job string, items int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := c.report(job)
	report.Runs++
	report.Items += int64(items)
	report.LastSuccessAt = c.now().UTC()
	report.LastDuration = duration.Milliseconds()
}

func (c *Collector) RecordFailure(job string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report(job).Failures++
}

// Snapshot copies all reports; callers may retain the result.
func (c *Collector) Snapshot() []JobReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]JobReport, 0, len(c.jobs))
	for _, report := range c.jobs {
		out = append(out, *report)
	}
	return out
}

func (c *Collector) report(job string) *JobReport {
	report, ok := c.jobs[job]
	if !ok {
		report = &JobReport{Name: job}
		c.jobs[job] = report
	}
	return report
}
