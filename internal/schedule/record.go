package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recurrence types as delivered by the catalog service.
// Values outside this range mean "no schedule to apply".
const (
	RecurrenceDaily   = 1
	RecurrenceWeekly  = 2
	RecurrenceMonthly = 3
)

// RowStateActive is the only row state that keeps a schedule alive in the
// engine; everything else is treated as inactive/deleted.
const RowStateActive = 1

// defaultValidity is applied when a record carries no recurrence end date.
const defaultValidity = 10 * 365 * 24 * time.Hour

// Record is one schedule definition as fetched from the job catalog or
// delivered by the notification queue. It is immutable per reconciliation
// call and never persisted by this process.
//
// Field names mirror the upstream DTO.
type Record struct {
	ID       *int64 `json:"id"`
	TenantID int64  `json:"tenantId"`
	Name     string `json:"name,omitempty"`

	RecurrenceType int       `json:"recurrenceType"`
	StartTime      TimeOfDay `json:"startTime"`

	Monday    *bool `json:"monday,omitempty"`
	Tuesday   *bool `json:"tuesday,omitempty"`
	Wednesday *bool `json:"wednesday,omitempty"`
	Thursday  *bool `json:"thursday,omitempty"`
	Friday    *bool `json:"friday,omitempty"`
	Saturday  *bool `json:"saturday,omitempty"`
	Sunday    *bool `json:"sunday,omitempty"`

	DayOfMonth int `json:"dayOfMonth,omitempty"`

	RecurrenceStartDate *time.Time `json:"recurrenceStartDate,omitempty"`
	RecurrenceEndDate   *time.Time `json:"recurrenceEndDate,omitempty"`

	RowState int `json:"rowStateId"`
}

// HasRecurrence reports whether the record carries a recurrence rule the
// engine can schedule. Records without one still get engine liveness ensured
// but no trigger mutation.
func (r Record) HasRecurrence() bool {
	return r.RecurrenceType >= RecurrenceDaily && r.RecurrenceType <= RecurrenceMonthly
}

// Active reports whether the schedule should exist in the live engine.
func (r Record) Active() bool { return r.RowState == RowStateActive }

// Window returns the validity bounds for the record's trigger.
// Missing bounds default to now and now+10 years, both UTC.
func (r Record) Window(now time.Time) (from, to time.Time) {
	now = now.UTC()
	from = now
	if r.RecurrenceStartDate != nil {
		from = r.RecurrenceStartDate.UTC()
	}
	to = now.Add(defaultValidity)
	if r.RecurrenceEndDate != nil {
		to = r.RecurrenceEndDate.UTC()
	}
	return from, to
}

// TimeOfDay is an hour/minute pair. The catalog serializes it as "HH:MM" or
// "HH:MM:SS"; seconds are accepted and discarded.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = TimeOfDay{}
		return nil
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
