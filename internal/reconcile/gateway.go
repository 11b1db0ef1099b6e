package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"schedsync/internal/schedule"
	"schedsync/internal/storage"
	logx "schedsync/pkg/logx"
)

const defaultBulkWorkers = 8

type GatewayConfig struct {
	// BulkWorkers bounds fan-out during the startup bulk load.
	BulkWorkers int
}

// identityLock is one identity's mutual-exclusion handle. Handles are created
// on demand and dropped again once the last holder releases, so the lock map
// does not grow with the total number of schedules ever seen.
type identityLock struct {
	mu   sync.Mutex
	refs int
}

// Gateway is the single entry point for reconciliation requests, used by both
// the startup bulk load and individual queue notifications.
type Gateway struct {
	cfg   GatewayConfig
	r     *Reconciler
	log   logx.Logger
	store storage.Store // may be nil

	mu    sync.Mutex
	locks map[string]*identityLock
}

func NewGateway(cfg GatewayConfig, r *Reconciler, store storage.Store, log logx.Logger) *Gateway {
	if cfg.BulkWorkers <= 0 {
		cfg.BulkWorkers = defaultBulkWorkers
	}
	return &Gateway{
		cfg:   cfg,
		r:     r,
		log:   log,
		store: store,
		locks: map[string]*identityLock{},
	}
}

// Reconcile serializes with other calls for the same schedule identity, then
// applies the record. Failures are logged here with identity context; the
// returned error never aborts sibling reconciliations.
func (g *Gateway) Reconcile(ctx context.Context, rec schedule.Record) error {
	key := lockKey(rec)
	if key != "" {
		l := g.acquire(key)
		defer g.release(key, l)
	}

	start := time.Now()
	outcome, err := g.r.Reconcile(ctx, rec)
	took := time.Since(start)

	fields := []logx.Field{
		logx.String("identity", key),
		logx.Int64("tenant", rec.TenantID),
		logx.String("outcome", outcome.String()),
		logx.Duration("took", took),
	}
	if err != nil {
		g.log.Error("reconciliation failed", append(fields, logx.Err(err))...)
	} else {
		g.log.Info("reconciliation applied", fields...)
	}

	g.audit(ctx, rec, outcome, took, err)
	return err
}

// BulkLoad reconciles every record with bounded concurrency. One record's
// failure never blocks the rest; it returns how many records failed.
func (g *Gateway) BulkLoad(ctx context.Context, records []schedule.Record) int {
	sem := make(chan struct{}, g.cfg.BulkWorkers)
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, rec := range records {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return int(failed.Load()) + 1
		}

		wg.Add(1)
		go func(rec schedule.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := g.Reconcile(ctx, rec); err != nil {
				failed.Add(1)
			}
		}(rec)
	}

	wg.Wait()
	return int(failed.Load())
}

func (g *Gateway) acquire(key string) *identityLock {
	g.mu.Lock()
	l := g.locks[key]
	if l == nil {
		l = &identityLock{}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return l
}

func (g *Gateway) release(key string, l *identityLock) {
	l.mu.Unlock()

	g.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, key)
	}
	g.mu.Unlock()
}

func (g *Gateway) audit(ctx context.Context, rec schedule.Record, outcome Outcome, took time.Duration, rerr error) {
	if g.store == nil {
		return
	}
	e := storage.ReconcileEntry{
		At:       time.Now(),
		TenantID: rec.TenantID,
		Outcome:  outcome.String(),
		OK:       rerr == nil,
		TookMS:   took.Milliseconds(),
	}
	if rec.ID != nil {
		e.ScheduleID = *rec.ID
	}
	if rerr != nil {
		e.Error = rerr.Error()
	}
	if err := g.store.AppendReconcile(ctx, e); err != nil {
		g.log.Warn("reconcile audit append failed", logx.Err(err))
	}
}

// lockKey returns the identity-scoped lock key, or "" when the record cannot
// carry an identity yet (missing id); such records fail input validation or
// are liveness no-ops, so serialization is moot.
func lockKey(rec schedule.Record) string {
	ident, err := schedule.DeriveIdentity(rec)
	if err != nil {
		return ""
	}
	return ident.Key()
}
