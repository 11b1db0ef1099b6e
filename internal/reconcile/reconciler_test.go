package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"schedsync/internal/engine"
	"schedsync/internal/schedule"
	logx "schedsync/pkg/logx"
)

func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }

type fakeEntry struct {
	trigger engine.TriggerKey
	expr    string
}

// fakeEngine mirrors the real engine's registration semantics: duplicate
// creates and mutations of absent entries are errors, never silent.
type fakeEngine struct {
	mu       sync.Mutex
	jobs     map[engine.JobKey]fakeEntry
	triggers map[engine.TriggerKey]engine.JobKey
	running  bool

	creates     int
	reschedules int
	deletes     int
	starts      int

	existsErr error
	// existsGate, when set for a job name, blocks Exists until released.
	existsGate map[string]chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		jobs:     map[engine.JobKey]fakeEntry{},
		triggers: map[engine.TriggerKey]engine.JobKey{},
	}
}

func (f *fakeEngine) Exists(ctx context.Context, job engine.JobKey) (bool, error) {
	f.mu.Lock()
	gate := f.existsGate[job.Name]
	err := f.existsErr
	_, ok := f.jobs[job]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (f *fakeEngine) Create(ctx context.Context, job engine.JobKey, trigger engine.TriggerKey, expr string, from, to time.Time, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job]; ok {
		return engine.ErrJobExists
	}
	f.jobs[job] = fakeEntry{trigger: trigger, expr: expr}
	f.triggers[trigger] = job
	f.creates++
	return nil
}

func (f *fakeEngine) Reschedule(ctx context.Context, trigger engine.TriggerKey, expr string, from, to time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.triggers[trigger]
	if !ok {
		return engine.ErrTriggerNotFound
	}
	f.jobs[job] = fakeEntry{trigger: trigger, expr: expr}
	f.reschedules++
	return nil
}

func (f *fakeEngine) Delete(ctx context.Context, job engine.JobKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	en, ok := f.jobs[job]
	if !ok {
		return engine.ErrJobNotFound
	}
	delete(f.jobs, job)
	delete(f.triggers, en.trigger)
	f.deletes++
	return nil
}

func (f *fakeEngine) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeEngine) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	return nil
}

func (f *fakeEngine) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func activeDaily(id int64) schedule.Record {
	return schedule.Record{
		ID:             int64p(id),
		TenantID:       3,
		RecurrenceType: schedule.RecurrenceDaily,
		StartTime:      schedule.TimeOfDay{Hour: 8, Minute: 30},
		RowState:       schedule.RowStateActive,
	}
}

func TestReconcileCreatesWhenAbsent(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())

	outcome, err := r.Reconcile(context.Background(), activeDaily(17))
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %v, want created", outcome)
	}

	job := engine.JobKey{Name: "17", Group: "JOB_3"}
	en, ok := eng.jobs[job]
	if !ok {
		t.Fatalf("job %s not registered", job)
	}
	if want := (engine.TriggerKey{Name: "TRIGGER_17", Group: "TRIGGER_3"}); en.trigger != want {
		t.Fatalf("trigger = %+v, want %+v", en.trigger, want)
	}
	if en.expr != "30 8 * * *" {
		t.Fatalf("expr = %q, want %q", en.expr, "30 8 * * *")
	}
	if !eng.running {
		t.Fatal("engine must be running after reconciliation")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, activeDaily(17)); err != nil {
		t.Fatalf("first Reconcile error: %v", err)
	}
	outcome, err := r.Reconcile(ctx, activeDaily(17))
	if err != nil {
		t.Fatalf("second Reconcile error: %v", err)
	}
	if outcome != OutcomeRescheduled {
		t.Fatalf("second outcome = %v, want rescheduled", outcome)
	}
	if eng.creates != 1 || eng.reschedules != 1 {
		t.Fatalf("creates = %d, reschedules = %d, want 1 and 1", eng.creates, eng.reschedules)
	}
	if eng.jobCount() != 1 {
		t.Fatalf("job count = %d, want exactly 1", eng.jobCount())
	}
}

func TestReconcileInactiveAbsentIsNoop(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())

	rec := activeDaily(17)
	rec.RowState = 2

	outcome, err := r.Reconcile(context.Background(), rec)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if outcome != OutcomeNone {
		t.Fatalf("outcome = %v, want none", outcome)
	}
	if eng.creates != 0 || eng.reschedules != 0 || eng.deletes != 0 {
		t.Fatalf("unexpected mutations: %+v", eng)
	}
}

func TestReconcileInactiveDeletesOnlyItsIdentity(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, activeDaily(17)); err != nil {
		t.Fatalf("seed 17: %v", err)
	}
	if _, err := r.Reconcile(ctx, activeDaily(18)); err != nil {
		t.Fatalf("seed 18: %v", err)
	}

	rec := activeDaily(17)
	rec.RowState = 0
	outcome, err := r.Reconcile(ctx, rec)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if outcome != OutcomeDeleted {
		t.Fatalf("outcome = %v, want deleted", outcome)
	}
	if _, ok := eng.jobs[engine.JobKey{Name: "17", Group: "JOB_3"}]; ok {
		t.Fatal("job 17 should be gone")
	}
	if _, ok := eng.jobs[engine.JobKey{Name: "18", Group: "JOB_3"}]; !ok {
		t.Fatal("job 18 must survive")
	}
}

func TestReconcileNoRecurrenceStillEnsuresEngine(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())

	rec := schedule.Record{ID: int64p(9), TenantID: 1, RecurrenceType: 9, RowState: 1}
	outcome, err := r.Reconcile(context.Background(), rec)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if outcome != OutcomeNone {
		t.Fatalf("outcome = %v, want none", outcome)
	}
	if eng.creates != 0 || eng.deletes != 0 {
		t.Fatal("no trigger mutation expected")
	}
	if !eng.running {
		t.Fatal("engine liveness must still be ensured")
	}
}

func TestReconcileMissingIDAborts(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())

	rec := schedule.Record{
		TenantID:       1,
		RecurrenceType: schedule.RecurrenceDaily,
		RowState:       schedule.RowStateActive,
	}
	_, err := r.Reconcile(context.Background(), rec)
	if !errors.Is(err, schedule.ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
	if eng.creates != 0 || eng.starts != 0 {
		t.Fatal("aborted reconciliation must not touch the engine")
	}
}

func TestReconcileEngineErrorSurfaces(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	eng.existsErr = errors.New("engine unavailable")
	r := NewReconciler(eng, logx.Nop())

	_, err := r.Reconcile(context.Background(), activeDaily(17))
	if err == nil {
		t.Fatal("expected error")
	}
	if eng.creates != 0 {
		t.Fatal("no mutation after exists failure")
	}
}

func TestReconcileWeeklyZeroDays(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())

	rec := schedule.Record{
		ID:             int64p(4),
		TenantID:       2,
		RecurrenceType: schedule.RecurrenceWeekly,
		StartTime:      schedule.TimeOfDay{Hour: 9},
		RowState:       schedule.RowStateActive,
	}
	outcome, err := r.Reconcile(context.Background(), rec)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	// Permissive upstream behavior: a never-firing trigger, not a rejection.
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %v, want created", outcome)
	}
}

func TestReconcileWeeklyExample(t *testing.T) {
	t.Parallel()
	eng := newFakeEngine()
	r := NewReconciler(eng, logx.Nop())

	rec := schedule.Record{
		ID:             int64p(5),
		TenantID:       1,
		RecurrenceType: schedule.RecurrenceWeekly,
		StartTime:      schedule.TimeOfDay{Hour: 9},
		Monday:         boolp(true),
		Friday:         boolp(true),
		RowState:       schedule.RowStateActive,
	}
	if _, err := r.Reconcile(context.Background(), rec); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	en := eng.jobs[engine.JobKey{Name: "5", Group: "JOB_1"}]
	if en.expr != "0 9 * * MON,FRI" {
		t.Fatalf("expr = %q, want %q", en.expr, "0 9 * * MON,FRI")
	}
}
