package queue

import (
	"testing"
)

func TestDecodeRecord(t *testing.T) {
	t.Parallel()
	rec, err := decodeRecord([]byte(`{
		"id": 17, "tenantId": 3, "recurrenceType": 1,
		"startTime": "08:30", "rowStateId": 1
	}`))
	if err != nil {
		t.Fatalf("decodeRecord error: %v", err)
	}
	if rec.ID == nil || *rec.ID != 17 {
		t.Fatalf("ID = %v, want 17", rec.ID)
	}
	if rec.TenantID != 3 || rec.RecurrenceType != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDecodeRecordRejectsMalformed(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `schedule 17 changed`},
		{name: "truncated", raw: `{"id": 17,`},
		{name: "unknown field", raw: `{"id": 17, "tenantId": 3, "surprise": true}`},
		{name: "wrong time format", raw: `{"id": 17, "tenantId": 3, "startTime": "late"}`},
	}
	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeRecord([]byte(tt.raw)); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()
	if got := ReadyKey("schedules"); got != "queue:schedules:ready" {
		t.Fatalf("ReadyKey = %q", got)
	}
	if got := DLQKey("schedules"); got != "queue:schedules:dlq" {
		t.Fatalf("DLQKey = %q", got)
	}
}
