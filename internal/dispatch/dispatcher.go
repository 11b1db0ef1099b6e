// Package dispatch runs fired triggers: it resolves the schedule id embedded
// in the job identity and calls the external execution endpoint. Failures are
// contained to the single firing.
package dispatch

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"schedsync/internal/engine"
	"schedsync/internal/storage"
	logx "schedsync/pkg/logx"
)

// Runner invokes the external "run this schedule's jobs" endpoint.
// *catalog.Client satisfies it.
type Runner interface {
	RunJobs(ctx context.Context, scheduleID int64) error
}

type Config struct {
	// RatePerSec caps outbound run calls. 0 disables the limiter.
	RatePerSec int
	// Timeout bounds one execution call. 0 leaves the caller's deadline alone.
	Timeout time.Duration
}

type Dispatcher struct {
	cfg     Config
	runner  Runner
	log     logx.Logger
	store   storage.Store // may be nil
	limiter *rate.Limiter
}

func New(cfg Config, runner Runner, store storage.Store, log logx.Logger) *Dispatcher {
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Dispatcher{cfg: cfg, runner: runner, log: log, store: store, limiter: lim}
}

// Execute handles one firing. The returned error is observability for the
// engine's event stream; by the time Execute returns, the failure has already
// been logged and recorded, and it never affects other firings.
func (d *Dispatcher) Execute(ctx context.Context, f engine.Firing) error {
	scheduleID, err := strconv.ParseInt(f.Job.Name, 10, 64)
	if err != nil {
		d.log.Error("firing carries a non-numeric job name",
			logx.String("job", f.Job.String()),
			logx.Err(err),
		)
		return err
	}

	d.log.Info("executing job",
		logx.Int64("schedule", scheduleID),
		logx.String("group", f.Job.Group),
	)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.record(ctx, scheduleID, f, 0, err)
			return err
		}
	}

	runCtx := ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	runErr := d.runner.RunJobs(runCtx, scheduleID)
	took := time.Since(start)

	if runErr != nil {
		d.log.Error("job execution failed",
			logx.Int64("schedule", scheduleID),
			logx.String("trigger", f.Trigger.String()),
			logx.Duration("took", took),
			logx.Err(runErr),
		)
	} else if f.Data["useConsoleOutput"] == "true" {
		// Per-registration diagnostic output; absence of the flag is fine.
		d.log.Debug(f.Data["consoleOutput"],
			logx.Int64("schedule", scheduleID),
			logx.String("trigger", f.Trigger.String()),
		)
	}

	d.record(ctx, scheduleID, f, took, runErr)
	return runErr
}

func (d *Dispatcher) record(ctx context.Context, scheduleID int64, f engine.Firing, took time.Duration, runErr error) {
	if d.store == nil {
		return
	}
	e := storage.FiringEntry{
		At:         f.At,
		ScheduleID: scheduleID,
		Trigger:    f.Trigger.String(),
		OK:         runErr == nil,
		TookMS:     took.Milliseconds(),
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	if err := d.store.AppendFiring(ctx, e); err != nil {
		d.log.Warn("firing audit append failed", logx.Err(err))
	}
}
