// Package schedule holds the schedule record model and the pure derivations
// the reconciler needs: the cron expression for a record's recurrence rule and
// the stable job/trigger identity for a record's (id, tenant) pair.
//
// Nothing in this package performs I/O.
package schedule
