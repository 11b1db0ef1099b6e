package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "schedsync/pkg/logx"
)

type entry struct {
	job     JobKey
	trigger TriggerKey
	expr    string
	sched   cron.Schedule

	validFrom time.Time
	validTo   time.Time
	data      map[string]string

	paused bool
	cronID cron.EntryID
}

// CronEngine is the live scheduling engine. Jobs and triggers are registered
// under stable keys; firings fan out through a bounded worker pool to the
// configured Handler.
type CronEngine struct {
	cfg     Config
	log     logx.Logger
	handler Handler

	mu       sync.Mutex
	c        *cron.Cron
	parser   cron.Parser
	entries  map[JobKey]*entry
	triggers map[TriggerKey]JobKey
	running  bool

	queue  chan Firing
	stopCh chan struct{}

	listener Listener

	wg sync.WaitGroup
}

func New(cfg Config, handler Handler, log logx.Logger) *CronEngine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &CronEngine{
		cfg:     cfg,
		log:     log,
		handler: handler,
		// All expressions run in UTC regardless of host timezone.
		c:        cron.New(cron.WithLocation(time.UTC)),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		entries:  map[JobKey]*entry{},
		triggers: map[TriggerKey]JobKey{},
		queue:    make(chan Firing, cfg.QueueSize),
	}
}

// SetListener installs the lifecycle event listener. Call before Start.
func (e *CronEngine) SetListener(l Listener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

func (e *CronEngine) notify(ev Event) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	if l != nil {
		l(ev)
	}
}

// Exists reports whether a job is currently registered.
func (e *CronEngine) Exists(ctx context.Context, job JobKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.entries[job]
	return ok, nil
}

// Create registers a job plus its trigger. The trigger fires once immediately
// on registration (start-now semantics) and then on the cron cadence, gated by
// the validity window on every occurrence.
func (e *CronEngine) Create(ctx context.Context, job JobKey, trigger TriggerKey, expr string, validFrom, validTo time.Time, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sched, err := e.parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("engine: parse expression %q: %w", expr, err)
	}

	e.mu.Lock()
	if _, ok := e.entries[job]; ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobExists, job)
	}
	en := &entry{
		job:       job,
		trigger:   trigger,
		expr:      expr,
		sched:     sched,
		validFrom: validFrom,
		validTo:   validTo,
		data:      data,
	}
	en.cronID = e.c.Schedule(sched, cron.FuncJob(func() { e.fire(en) }))
	e.entries[job] = en
	e.triggers[trigger] = job
	e.mu.Unlock()

	e.notify(Event{Kind: EventJobAdded, Job: job})
	e.notify(Event{Kind: EventTriggerScheduled, Job: job, Trigger: trigger})

	// Fire once right away, same path as a scheduled occurrence.
	e.fire(en)
	return nil
}

// Reschedule replaces an existing trigger's firing rule and validity window
// without disturbing the job registration.
func (e *CronEngine) Reschedule(ctx context.Context, trigger TriggerKey, expr string, validFrom, validTo time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sched, err := e.parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("engine: parse expression %q: %w", expr, err)
	}

	e.mu.Lock()
	job, ok := e.triggers[trigger]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTriggerNotFound, trigger)
	}
	en := e.entries[job]
	en.expr = expr
	en.sched = sched
	en.validFrom = validFrom
	en.validTo = validTo
	if !en.paused {
		e.c.Remove(en.cronID)
		en.cronID = e.c.Schedule(sched, cron.FuncJob(func() { e.fire(en) }))
	}
	e.mu.Unlock()

	e.notify(Event{Kind: EventTriggerUnscheduled, Job: job, Trigger: trigger})
	e.notify(Event{Kind: EventTriggerScheduled, Job: job, Trigger: trigger})
	return nil
}

// Delete removes a job and its trigger.
func (e *CronEngine) Delete(ctx context.Context, job JobKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	en, ok := e.entries[job]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, job)
	}
	e.c.Remove(en.cronID)
	delete(e.entries, job)
	delete(e.triggers, en.trigger)
	e.mu.Unlock()

	e.notify(Event{Kind: EventTriggerUnscheduled, Job: job, Trigger: en.trigger})
	e.notify(Event{Kind: EventJobDeleted, Job: job})
	return nil
}

// Pause detaches a job's trigger from the cron core without forgetting the
// registration. Pausing an already paused job is a no-op.
func (e *CronEngine) Pause(ctx context.Context, job JobKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	en, ok := e.entries[job]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, job)
	}
	if en.paused {
		e.mu.Unlock()
		return nil
	}
	e.c.Remove(en.cronID)
	en.paused = true
	e.mu.Unlock()

	e.notify(Event{Kind: EventJobPaused, Job: job, Trigger: en.trigger})
	return nil
}

// Resume reattaches a paused job's trigger on its last known firing rule.
// Resuming a job that is not paused is a no-op.
func (e *CronEngine) Resume(ctx context.Context, job JobKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	en, ok := e.entries[job]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, job)
	}
	if !en.paused {
		e.mu.Unlock()
		return nil
	}
	en.cronID = e.c.Schedule(en.sched, cron.FuncJob(func() { e.fire(en) }))
	en.paused = false
	e.mu.Unlock()

	e.notify(Event{Kind: EventJobResumed, Job: job, Trigger: en.trigger})
	return nil
}

// IsRunning reports whether the engine has been started.
func (e *CronEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start launches the worker pool and the cron core. Starting an already
// started engine is a no-op; it is safe to race.
func (e *CronEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.stopCh = make(chan struct{})

	for i := 0; i < e.cfg.MaxConcurrent; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
	e.c.Start()
	e.mu.Unlock()

	e.log.Info("engine started", logx.Int("workers", e.cfg.MaxConcurrent))
	e.notify(Event{Kind: EventSchedulerStarted})
	return nil
}

// Stop halts the cron core, waits for the in-flight cron dispatch to finish,
// and shuts down the worker pool. Queued firings that have not started are
// dropped.
func (e *CronEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	stopCh := e.stopCh
	e.mu.Unlock()

	cronCtx := e.c.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	close(stopCh)
	e.wg.Wait()

	e.log.Info("engine stopped")
	e.notify(Event{Kind: EventSchedulerShutdown})
	return nil
}

// fire enqueues one firing for an entry, skipping occurrences outside the
// validity window and dropping when the queue is saturated.
func (e *CronEngine) fire(en *entry) {
	now := time.Now().UTC()

	e.mu.Lock()
	from, to := en.validFrom, en.validTo
	f := Firing{Job: en.job, Trigger: en.trigger, At: now, Data: en.data}
	e.mu.Unlock()

	if (!from.IsZero() && now.Before(from)) || (!to.IsZero() && now.After(to)) {
		e.log.Debug("firing outside validity window, skipped",
			logx.String("job", f.Job.String()),
			logx.Time("from", from),
			logx.Time("to", to),
		)
		return
	}

	select {
	case e.queue <- f:
	default:
		e.log.Warn("firing queue full, dropping occurrence", logx.String("job", f.Job.String()))
		e.notify(Event{Kind: EventSchedulerError, Job: f.Job, Trigger: f.Trigger,
			Err: fmt.Errorf("firing queue full: %s", f.Job)})
	}
}
