package usecase

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/teewatch/teewatch/internal/platform/logging"
)

// Job is one periodic unit of work. Run errors are logged and do not
// stop the loop.
type Job interface {
	Run(ctx context.Context) error
}

type scheduledJob struct {
	name     string
	interval time.Duration
	job      Job
}

// Runner drives every registered job on its own interval until the
// context is cancelled, then waits for all loops to stop.
type Runner struct {
	logger *logging.Logger
	jobs   []scheduledJob
}

func NewRunner(logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{logger: logger}
}

func (r *Runner) Register(name string, interval time.Duration, job Job) {
	r.jobs = append(r.jobs, scheduledJob{name: name, interval: interval, job: job})
}

// Run blocks until ctx is cancelled and every job loop has returned.
func (r *Runner) Run(ctx context.Context) error {
	loops := pool.New().WithContext(ctx)

	for _, sj := range r.jobs {
		sj := sj
		loops.Go(func(ctx context.Context) error {
			r.loop(ctx, sj)
			return nil
		})
	}

	return loops.Wait()
}

func (r *Runner) loop(ctx context.Context, sj scheduledJob) {
	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	r.runOnce(ctx, sj)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, sj)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, sj scheduledJob) {
	if ctx.Err() != nil {
		return
	}
	if err := sj.job.Run(ctx); err != nil {
		r.logger.ErrorContext(ctx, "job run failed", "job", sj.name, "error", err)
	}
}
