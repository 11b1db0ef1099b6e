package schedule

import (
	"errors"
	"testing"
)

func int64p(v int64) *int64 { return &v }

func TestDeriveIdentity(t *testing.T) {
	t.Parallel()
	ident, err := DeriveIdentity(Record{ID: int64p(17), TenantID: 3})
	if err != nil {
		t.Fatalf("DeriveIdentity error: %v", err)
	}

	want := Identity{
		JobName:      "17",
		JobGroup:     "JOB_3",
		TriggerName:  "TRIGGER_17",
		TriggerGroup: "TRIGGER_3",
	}
	if ident != want {
		t.Fatalf("identity = %+v, want %+v", ident, want)
	}
	if ident.Key() != "JOB_3/17" {
		t.Fatalf("Key = %q, want %q", ident.Key(), "JOB_3/17")
	}

	id, err := ident.ScheduleID()
	if err != nil {
		t.Fatalf("ScheduleID error: %v", err)
	}
	if id != 17 {
		t.Fatalf("ScheduleID = %d, want 17", id)
	}
}

func TestDeriveIdentityStable(t *testing.T) {
	t.Parallel()
	rec := Record{ID: int64p(5), TenantID: 1}
	a, _ := DeriveIdentity(rec)
	b, _ := DeriveIdentity(rec)
	if a != b {
		t.Fatalf("identity not stable: %+v vs %+v", a, b)
	}

	other, _ := DeriveIdentity(Record{ID: int64p(6), TenantID: 1})
	if a == other {
		t.Fatal("different schedules must not share an identity")
	}
}

func TestDeriveIdentityMissingID(t *testing.T) {
	t.Parallel()
	_, err := DeriveIdentity(Record{TenantID: 3})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
}
