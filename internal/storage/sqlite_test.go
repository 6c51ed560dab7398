package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAppointment(id string, created time.Time) Appointment {
	return Appointment{
		ID:            id,
		CreatedAt:     created,
		Name:          "Pat Customer",
		Phone:         "314-555-0100",
		Email:         "pat@example.com",
		Location:      "Kirkwood",
		ServiceType:   "Oil Change",
		PreferredDate: "2026-11-02",
		PreferredTime: "09:00",
		VehicleMake:   "Honda",
		VehicleModel:  "Civic",
		VehicleYear:   "2019",
		Notes:         "Synthetic please",
	}
}

// TestMigrationsIdempotent opens the same on-disk database twice and checks
// no migration is applied a second time.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) || len(v1) != 2 {
		t.Errorf("applied migrations: first %v, second %v; want two each", v1, v2)
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_appointments_created", "idx_jobs_status_run_after"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found", idx)
		}
	}
}

func TestSaveAndGetAppointment(t *testing.T) {
	s := openTestStore(t)

	want := testAppointment("appt-1", time.Date(2026, 10, 1, 14, 30, 0, 123456000, time.UTC))
	if err := s.SaveAppointment(want); err != nil {
		t.Fatalf("SaveAppointment: %v", err)
	}

	got, err := s.GetAppointment("appt-1")
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("GetAppointment = %+v\nwant %+v", got, want)
	}
}

func TestSaveAppointment_DuplicateID(t *testing.T) {
	s := openTestStore(t)

	a := testAppointment("dup", time.Now())
	if err := s.SaveAppointment(a); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.SaveAppointment(a); err == nil {
		t.Error("expected error saving a duplicate id")
	}
}

func TestGetAppointmentNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetAppointment("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListAppointments_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	for i := range 3 {
		a := testAppointment(fmt.Sprintf("appt-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.SaveAppointment(a); err != nil {
			t.Fatalf("SaveAppointment: %v", err)
		}
	}

	all, err := s.ListAppointments(0)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"appt-2", "appt-1", "appt-0"} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %q, want %q", i, all[i].ID, want)
		}
	}

	limited, err := s.ListAppointments(2)
	if err != nil {
		t.Fatalf("ListAppointments(2): %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "appt-2" {
		t.Errorf("limited = %v", limited)
	}
}

func TestListAppointments_SameInstantUsesInsertOrder(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	s.SaveAppointment(testAppointment("older", now))
	s.SaveAppointment(testAppointment("newer", now))

	all, err := s.ListAppointments(0)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if all[0].ID != "newer" {
		t.Errorf("first = %q, want the later insert", all[0].ID)
	}
}

func TestListAppointments_EmptyIsNotNil(t *testing.T) {
	s := openTestStore(t)

	all, err := s.ListAppointments(0)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("ListAppointments = %#v, want empty slice", all)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := openTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SaveAppointment(testAppointment(fmt.Sprintf("c-%d", i), time.Now()))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("SaveAppointment: %v", err)
		}
	}

	n, err := s.CountAppointments()
	if err != nil {
		t.Fatalf("CountAppointments: %v", err)
	}
	if n != 20 {
		t.Errorf("count = %d, want 20", n)
	}
}

// --- Jobs ---

func TestEnqueueAndClaimJob(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j-1", Type: "lead_export", PayloadJSON: `{"appointment_id":"a1"}`}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	got, err := s.ClaimNextJob([]string{"lead_export"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got == nil {
		t.Fatal("ClaimNextJob returned nil")
	}
	if got.ID != "j-1" || got.Status != "running" || got.MaxAttempts != 3 {
		t.Errorf("claimed job = %+v", got)
	}
	if got.PayloadJSON != `{"appointment_id":"a1"}` {
		t.Errorf("PayloadJSON = %q", got.PayloadJSON)
	}

	again, err := s.ClaimNextJob([]string{"lead_export"})
	if err != nil {
		t.Fatalf("second ClaimNextJob: %v", err)
	}
	if again != nil {
		t.Errorf("running job claimed twice: %+v", again)
	}
}

func TestClaimNextJob_FiltersAndSchedules(t *testing.T) {
	s := openTestStore(t)

	s.EnqueueJob(Job{ID: "later", Type: "lead_export", PayloadJSON: `{}`, RunAfter: time.Now().Add(time.Hour)})
	s.EnqueueJob(Job{ID: "other", Type: "other", PayloadJSON: `{}`})

	got, err := s.ClaimNextJob([]string{"lead_export"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got != nil {
		t.Errorf("claimed %q, want nothing (future run_after or wrong type)", got.ID)
	}

	if got, _ := s.ClaimNextJob(nil); got != nil {
		t.Errorf("ClaimNextJob(nil) = %+v, want nil", got)
	}
}

func TestCompleteJob(t *testing.T) {
	s := openTestStore(t)

	s.EnqueueJob(Job{ID: "j-done", Type: "lead_export", PayloadJSON: `{}`})
	s.ClaimNextJob([]string{"lead_export"})
	if err := s.CompleteJob("j-done"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	counts, err := s.CountJobs("lead_export")
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if counts["completed"] != 1 {
		t.Errorf("counts = %v, want one completed", counts)
	}

	if err := s.CompleteJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteJob(missing) err = %v, want ErrNotFound", err)
	}
}

func TestFailJob_RetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)

	s.EnqueueJob(Job{ID: "j-retry", Type: "lead_export", PayloadJSON: `{}`})
	s.ClaimNextJob([]string{"lead_export"})

	before := time.Now().UTC().Truncate(time.Second)
	if err := s.FailJob("j-retry", "disk full"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	var status, lastError, runAfterStr string
	var attempts int
	err := s.db.QueryRow(`SELECT status, attempts, last_error, run_after FROM jobs WHERE id = 'j-retry'`).
		Scan(&status, &attempts, &lastError, &runAfterStr)
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if status != "pending" || attempts != 1 || lastError != "disk full" {
		t.Errorf("status=%q attempts=%d last_error=%q", status, attempts, lastError)
	}
	runAfter, err := time.Parse(time.RFC3339, runAfterStr)
	if err != nil {
		t.Fatalf("parsing run_after: %v", err)
	}
	if !runAfter.After(before) {
		t.Errorf("run_after %v should be after %v", runAfter, before)
	}
}

func TestFailJob_GivesUpAtMaxAttempts(t *testing.T) {
	s := openTestStore(t)

	s.EnqueueJob(Job{ID: "j-fatal", Type: "lead_export", PayloadJSON: `{}`, MaxAttempts: 1})
	s.ClaimNextJob([]string{"lead_export"})
	if err := s.FailJob("j-fatal", "fatal"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	counts, err := s.CountJobs("lead_export")
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if counts["failed"] != 1 {
		t.Errorf("counts = %v, want one failed", counts)
	}

	if err := s.FailJob("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FailJob(missing) err = %v, want ErrNotFound", err)
	}
}
