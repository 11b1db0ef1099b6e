package schedule

import (
	"errors"
	"strconv"
)

// ErrMissingID is returned when a record has no id yet. A schedule must be
// persisted upstream before it can be scheduled.
var ErrMissingID = errors.New("schedule record has no id")

// Identity is the stable job/trigger key tuple for one schedule, scoped by
// owning tenant. Identical (id, tenantId) always yields the identical tuple;
// the engine's existence check depends on that.
type Identity struct {
	JobName      string
	JobGroup     string
	TriggerName  string
	TriggerGroup string
}

// DeriveIdentity builds the identity tuple for a record.
func DeriveIdentity(r Record) (Identity, error) {
	if r.ID == nil {
		return Identity{}, ErrMissingID
	}
	id := strconv.FormatInt(*r.ID, 10)
	tenant := strconv.FormatInt(r.TenantID, 10)
	return Identity{
		JobName:      id,
		JobGroup:     "JOB_" + tenant,
		TriggerName:  "TRIGGER_" + id,
		TriggerGroup: "TRIGGER_" + tenant,
	}, nil
}

// Key is a single-string form of the job identity, used for identity-scoped
// locking and log context.
func (i Identity) Key() string { return i.JobGroup + "/" + i.JobName }

// ScheduleID recovers the numeric schedule id embedded in the job name.
func (i Identity) ScheduleID() (int64, error) {
	return strconv.ParseInt(i.JobName, 10, 64)
}
