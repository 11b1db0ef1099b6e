package schedule

import (
	"fmt"
	"strings"
)

// neverDays is the day-of-month/month pair used when a weekly record selects
// no weekdays at all. February 31st does not exist, so the expression parses
// but never matches. Upstream treats an empty weekday mask as valid input.
const neverDays = "31 2"

// weekdayNames in cron day-list order (Mon first, matching upstream).
var weekdayNames = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// BuildCron translates a record's recurrence fields into the engine's native
// recurring-expression syntax (standard five-field cron, named weekdays).
// All expressions are interpreted in UTC by the engine; never local time.
func BuildCron(r Record) (string, error) {
	switch r.RecurrenceType {
	case RecurrenceDaily:
		return fmt.Sprintf("%d %d * * *", r.StartTime.Minute, r.StartTime.Hour), nil

	case RecurrenceWeekly:
		days := weekdayList(r)
		if days == "" {
			// No weekday selected: legal, yields an expression that never fires.
			return fmt.Sprintf("%d %d %s *", r.StartTime.Minute, r.StartTime.Hour, neverDays), nil
		}
		return fmt.Sprintf("%d %d * * %s", r.StartTime.Minute, r.StartTime.Hour, days), nil

	case RecurrenceMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return "", fmt.Errorf("day of month %d out of range 1..31", r.DayOfMonth)
		}
		return fmt.Sprintf("%d %d %d * *", r.StartTime.Minute, r.StartTime.Hour, r.DayOfMonth), nil

	default:
		return "", fmt.Errorf("unknown recurrence type %d", r.RecurrenceType)
	}
}

// weekdayList joins the selected weekdays Mon→Sun, comma separated, with no
// leading separator.
func weekdayList(r Record) string {
	flags := [...]*bool{r.Monday, r.Tuesday, r.Wednesday, r.Thursday, r.Friday, r.Saturday, r.Sunday}

	var b strings.Builder
	for i, f := range flags {
		if f == nil || !*f {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(weekdayNames[i])
	}
	return b.String()
}
