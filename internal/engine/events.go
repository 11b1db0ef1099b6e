package engine

import (
	logx "schedsync/pkg/logx"
)

// EventKind tags a lifecycle notification. Events exist for observability
// only; nothing feeds back into scheduling decisions.
type EventKind int

const (
	EventJobAdded EventKind = iota
	EventJobDeleted
	EventJobPaused
	EventJobResumed
	EventTriggerScheduled
	EventTriggerUnscheduled
	EventSchedulerStarted
	EventSchedulerShutdown
	EventSchedulerError
)

func (k EventKind) String() string {
	switch k {
	case EventJobAdded:
		return "job_added"
	case EventJobDeleted:
		return "job_deleted"
	case EventJobPaused:
		return "job_paused"
	case EventJobResumed:
		return "job_resumed"
	case EventTriggerScheduled:
		return "trigger_scheduled"
	case EventTriggerUnscheduled:
		return "trigger_unscheduled"
	case EventSchedulerStarted:
		return "scheduler_started"
	case EventSchedulerShutdown:
		return "scheduler_shutdown"
	case EventSchedulerError:
		return "scheduler_error"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification. Job/Trigger are zero for
// scheduler-level events; Err is set only for EventSchedulerError.
type Event struct {
	Kind    EventKind
	Job     JobKey
	Trigger TriggerKey
	Err     error
}

// Listener receives lifecycle events. It is called inline from engine
// goroutines and must return quickly.
type Listener func(Event)

// LogListener returns a Listener that writes every event to the given logger.
func LogListener(log logx.Logger) Listener {
	return func(ev Event) {
		fields := []logx.Field{logx.String("event", ev.Kind.String())}
		if ev.Job != (JobKey{}) {
			fields = append(fields, logx.String("job", ev.Job.String()))
		}
		if ev.Trigger != (TriggerKey{}) {
			fields = append(fields, logx.String("trigger", ev.Trigger.String()))
		}
		if ev.Err != nil {
			fields = append(fields, logx.Err(ev.Err))
			log.Error("engine event", fields...)
			return
		}
		log.Info("engine event", fields...)
	}
}
