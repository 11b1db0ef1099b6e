// Package reconcile brings live engine trigger state into agreement with
// schedule records.
//
// The Reconciler decides one mutation per record (create, reschedule, delete
// or nothing) against fresh engine state. The Gateway serializes attempts per
// schedule identity so the exists-then-mutate sequence never interleaves with
// another reconciliation of the same schedule, while unrelated schedules
// proceed in parallel.
package reconcile
