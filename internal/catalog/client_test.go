package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "schedsync/pkg/logx"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/Auth/ServiceLogin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "body", http.StatusBadRequest)
			return
		}
		if creds["UserName"] != "svc" || creds["Password"] != "secret" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})

	requireBearer := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("/api/ImportJobs/Schedules/", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(w, r) {
			return
		}
		_, _ = w.Write([]byte(`[
			{"id": 17, "tenantId": 3, "recurrenceType": 1, "startTime": "08:30", "rowStateId": 1},
			{"id": 5, "tenantId": 1, "recurrenceType": 2, "startTime": "09:00", "monday": true, "friday": true, "rowStateId": 1}
		]`))
	})

	mux.HandleFunc("/api/ImportJobs/Schedules/RunJobs/17", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/ImportJobs/Job/9", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{"id": 9, "name": "import", "tenantId": 3, "jobScheduleId": 17, "rowStateId": 1}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL, user, pass string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Username: user, Password: pass}, logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "svc", "secret")

	token, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("token = %q, want %q", token, "tok-123")
	}
}

func TestAuthenticateRejected(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "svc", "wrong")

	if _, err := c.Authenticate(context.Background()); err == nil {
		t.Fatal("expected error for bad credentials")
	}
}

func TestFetchSchedules(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "svc", "secret")

	records, err := c.FetchSchedules(context.Background())
	if err != nil {
		t.Fatalf("FetchSchedules error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ID == nil || *records[0].ID != 17 || records[0].TenantID != 3 {
		t.Fatalf("first record = %+v, want id 17 tenant 3", records[0])
	}
	if records[1].Monday == nil || !*records[1].Monday {
		t.Fatalf("second record should have monday set: %+v", records[1])
	}
}

func TestFetchSchedulesAuthFailureSurfaces(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "svc", "wrong")

	if _, err := c.FetchSchedules(context.Background()); err == nil {
		t.Fatal("auth failure must fail the fetch")
	}
}

func TestRunJobs(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "svc", "secret")

	if err := c.RunJobs(context.Background(), 17); err != nil {
		t.Fatalf("RunJobs error: %v", err)
	}
	if err := c.RunJobs(context.Background(), 0); err == nil {
		t.Fatal("expected error for schedule id 0")
	}
}

func TestFetchJob(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "svc", "secret")

	job, err := c.FetchJob(context.Background(), 9)
	if err != nil {
		t.Fatalf("FetchJob error: %v", err)
	}
	if job.ID != 9 || job.ScheduleID != 17 {
		t.Fatalf("job = %+v, want id 9 schedule 17", job)
	}
}
