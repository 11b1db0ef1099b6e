package engine

import (
	"context"
	"time"

	logx "schedsync/pkg/logx"
)

func (e *CronEngine) worker(ctx context.Context) {
	defer e.wg.Done()

	e.mu.Lock()
	stopCh := e.stopCh
	e.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case f := <-e.queue:
			e.runOne(ctx, f)
		}
	}
}

func (e *CronEngine) runOne(ctx context.Context, f Firing) {
	start := time.Now()
	err := e.handler.Execute(ctx, f)
	took := time.Since(start)

	if err != nil {
		// One failed firing must never cancel future firings.
		e.log.Warn("firing handler failed",
			logx.String("job", f.Job.String()),
			logx.String("trigger", f.Trigger.String()),
			logx.Duration("took", took),
			logx.Err(err),
		)
		e.notify(Event{Kind: EventSchedulerError, Job: f.Job, Trigger: f.Trigger, Err: err})
		return
	}

	e.log.Debug("firing handled",
		logx.String("job", f.Job.String()),
		logx.Duration("took", took),
	)
}
