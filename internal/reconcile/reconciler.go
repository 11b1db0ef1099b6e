package reconcile

import (
	"context"
	"fmt"
	"time"

	"schedsync/internal/engine"
	"schedsync/internal/schedule"
	logx "schedsync/pkg/logx"
)

// Engine is the capability the reconciler needs from the scheduling engine.
// *engine.CronEngine satisfies it.
type Engine interface {
	Exists(ctx context.Context, job engine.JobKey) (bool, error)
	Create(ctx context.Context, job engine.JobKey, trigger engine.TriggerKey, expr string, validFrom, validTo time.Time, data map[string]string) error
	Reschedule(ctx context.Context, trigger engine.TriggerKey, expr string, validFrom, validTo time.Time) error
	Delete(ctx context.Context, job engine.JobKey) error
	IsRunning() bool
	Start(ctx context.Context) error
}

// Outcome names the mutation a reconciliation applied.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCreated
	OutcomeRescheduled
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRescheduled:
		return "rescheduled"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "none"
	}
}

// jobData is attached to every created job and handed back on each firing.
// The dispatcher reads the console-output flag; its absence must not fail a
// firing.
func jobData() map[string]string {
	return map[string]string{
		"useConsoleOutput": "true",
		"consoleOutput":    "executing scheduled job",
	}
}

type Reconciler struct {
	eng Engine
	log logx.Logger
}

func NewReconciler(eng Engine, log logx.Logger) *Reconciler {
	return &Reconciler{eng: eng, log: log}
}

// Reconcile applies the mutation a record requires. It re-queries existence
// immediately before mutating and never caches engine state. The caller is
// responsible for identity-scoped serialization (see Gateway).
//
// Engine liveness is ensured on every call that gets past input validation,
// including records with no recurrence to apply.
func (r *Reconciler) Reconcile(ctx context.Context, rec schedule.Record) (Outcome, error) {
	if !rec.HasRecurrence() {
		// Nothing to schedule, but the engine must still end up running.
		return OutcomeNone, r.ensureRunning(ctx)
	}

	expr, err := schedule.BuildCron(rec)
	if err != nil {
		return OutcomeNone, fmt.Errorf("build cron: %w", err)
	}
	ident, err := schedule.DeriveIdentity(rec)
	if err != nil {
		return OutcomeNone, fmt.Errorf("derive identity: %w", err)
	}

	job := engine.JobKey{Name: ident.JobName, Group: ident.JobGroup}
	trigger := engine.TriggerKey{Name: ident.TriggerName, Group: ident.TriggerGroup}
	validFrom, validTo := rec.Window(time.Now())

	exists, err := r.eng.Exists(ctx, job)
	if err != nil {
		return OutcomeNone, fmt.Errorf("exists %s: %w", job, err)
	}

	outcome := OutcomeNone
	switch {
	case exists && rec.Active():
		if err := r.eng.Reschedule(ctx, trigger, expr, validFrom, validTo); err != nil {
			return OutcomeNone, fmt.Errorf("reschedule %s: %w", trigger, err)
		}
		outcome = OutcomeRescheduled

	case exists && !rec.Active():
		if err := r.eng.Delete(ctx, job); err != nil {
			return OutcomeNone, fmt.Errorf("delete %s: %w", job, err)
		}
		outcome = OutcomeDeleted

	case !exists && rec.Active():
		if err := r.eng.Create(ctx, job, trigger, expr, validFrom, validTo, jobData()); err != nil {
			return OutcomeNone, fmt.Errorf("create %s: %w", job, err)
		}
		outcome = OutcomeCreated

	default:
		// Inactive and absent: nothing to delete.
	}

	if outcome != OutcomeNone {
		r.log.Debug("schedule reconciled",
			logx.String("job", job.String()),
			logx.String("outcome", outcome.String()),
			logx.String("cron", expr),
		)
	}

	return outcome, r.ensureRunning(ctx)
}

func (r *Reconciler) ensureRunning(ctx context.Context) error {
	if r.eng.IsRunning() {
		return nil
	}
	if err := r.eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	return nil
}
