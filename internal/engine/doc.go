// Package engine wraps robfig/cron with named job/trigger registration, the
// operations the reconciler needs (exists, create, reschedule, delete, start),
// and a bounded worker pool that runs firings through a Handler.
//
// Trigger durability lives here and only here: callers re-query existence
// before every mutation instead of caching it.
package engine
