package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log}
}

// Every: сразу один прогон, затем по тикеру, пока жив контекст раннера.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		defer observability.Recover("jobs:" + name)
		r.run(name, fn)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	jobRuns.WithLabelValues(name).Inc()
	defer func() {
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			jobErrors.WithLabelValues(name).Inc()
			observability.CaptureWith(fmt.Errorf("panic: %v", rec), map[string]string{"job": name})
			r.log.Error("job panicked", zap.String("job", name), zap.Any("panic", rec))
		}
	}()

	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		observability.CaptureWith(err, map[string]string{"job": name})
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	jobLastSuccess.WithLabelValues(name).SetToCurrentTime()
}
