package engine

import (
	"context"
	"errors"
	"time"
)

type Config struct {
	// MaxConcurrent bounds how many firings may execute in parallel.
	MaxConcurrent int
	// QueueSize is the firing queue capacity between the cron core and the
	// worker pool.
	QueueSize int
}

const (
	defaultMaxConcurrent = 10
	defaultQueueSize     = 256
)

// JobKey names a registered job.
type JobKey struct {
	Name  string
	Group string
}

func (k JobKey) String() string { return k.Group + "/" + k.Name }

// TriggerKey names a registered trigger.
type TriggerKey struct {
	Name  string
	Group string
}

func (k TriggerKey) String() string { return k.Group + "/" + k.Name }

// Firing is one occurrence of a trigger activating.
type Firing struct {
	Job     JobKey
	Trigger TriggerKey
	At      time.Time

	// Data carries the job's per-registration metadata. May be nil.
	Data map[string]string
}

// Handler runs a firing. A handler error is reported through the event
// stream and never stops the engine or future firings.
type Handler interface {
	Execute(ctx context.Context, f Firing) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, f Firing) error

func (fn HandlerFunc) Execute(ctx context.Context, f Firing) error { return fn(ctx, f) }

var (
	ErrJobExists       = errors.New("engine: job already exists")
	ErrJobNotFound     = errors.New("engine: job not found")
	ErrTriggerNotFound = errors.New("engine: trigger not found")
)
