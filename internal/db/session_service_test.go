package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestServices(t *testing.T) (*SessionService, *TaskService) {
	t.Helper()
	gdb, err := Open(filepath.Join(t.TempDir(), "punchcard.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = Close(gdb) })
	return NewSessionService(gdb), NewTaskService(gdb)
}

func TestCheckInEnforcesSingleActiveSession(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, err := tasks.CreateTask("Replace compressor", "WO-100", "Acme HVAC")
	if err != nil {
		t.Fatal(err)
	}

	first, err := sessions.CheckIn(task.ID, "tech-1", "", "client_1_aaa")
	if err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}
	if !first.IsActive {
		t.Error("expected first session to be active")
	}

	_, err = sessions.CheckIn(task.ID, "tech-1", "", "client_2_bbb")
	if !errors.Is(err, ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}
}

func TestCheckInReplayReturnsExistingSession(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Inspect boiler", "WO-101", "Acme HVAC")

	first, err := sessions.CheckIn(task.ID, "tech-1", "pressure check", "client_1_aaa")
	if err != nil {
		t.Fatal(err)
	}

	replayed, err := sessions.CheckIn(task.ID, "tech-1", "pressure check", "client_1_aaa")
	if err != nil {
		t.Fatalf("replay with same clientSessionId should succeed, got %v", err)
	}
	if replayed.SessionID != first.SessionID {
		t.Errorf("expected replay to return session %s, got %s", first.SessionID, replayed.SessionID)
	}
}

func TestDifferentPersonsCanShareTask(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Site survey", "WO-102", "Acme HVAC")

	if _, err := sessions.CheckIn(task.ID, "tech-1", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.CheckIn(task.ID, "tech-2", "", ""); err != nil {
		t.Errorf("a second person should be able to check in, got %v", err)
	}
}

func TestCheckOutClosesSessionAndRecordsEntry(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Fit thermostat", "WO-103", "Acme HVAC")

	session, err := sessions.CheckIn(task.ID, "tech-1", "", "")
	if err != nil {
		t.Fatal(err)
	}

	entry, err := sessions.CheckOut(session.SessionID, "tech-1", session.CheckInTime.Format(time.RFC3339), 1.5, "done")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if entry.Hours != 1.5 {
		t.Errorf("expected 1.5 hours, got %v", entry.Hours)
	}
	if entry.Source != "checkout" {
		t.Errorf("expected source checkout, got %q", entry.Source)
	}
	if entry.WorkOrderID != task.WorkOrderID {
		t.Errorf("expected work order %d on entry, got %d", task.WorkOrderID, entry.WorkOrderID)
	}

	active, err := sessions.ActiveSession(task.ID, "tech-1")
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Error("expected no active session after checkout")
	}
}

func TestCheckOutUnknownSession(t *testing.T) {
	t.Parallel()
	sessions, _ := newTestServices(t)
	_, err := sessions.CheckOut("srv-missing", "tech-1", "2025-06-02T09:00:00Z", 1, "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEmergencyCheckoutClosesInactiveSession(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Leak repair", "WO-104", "Acme HVAC")

	session, err := sessions.CheckIn(task.ID, "tech-1", "", "client_1_ccc")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.CheckOut(session.SessionID, "tech-1", session.CheckInTime.Format(time.RFC3339), 1, ""); err != nil {
		t.Fatal(err)
	}

	// Emergency checkout bypasses the active-session invariant.
	entry, err := sessions.EmergencyCheckout(session.SessionID, "recovered after offline period")
	if err != nil {
		t.Fatalf("emergency checkout of closed session should succeed, got %v", err)
	}
	if entry.Source != "emergency" {
		t.Errorf("expected source emergency, got %q", entry.Source)
	}
}

func TestEmergencyCheckoutResolvesClientSessionID(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Filter swap", "WO-105", "Acme HVAC")

	session, err := sessions.CheckIn(task.ID, "tech-1", "", "client_9_zzz")
	if err != nil {
		t.Fatal(err)
	}

	entry, err := sessions.EmergencyCheckout("client_9_zzz", "")
	if err != nil {
		t.Fatalf("emergency checkout by client session id failed: %v", err)
	}
	if entry.SessionID != session.SessionID {
		t.Errorf("expected entry for session %s, got %s", session.SessionID, entry.SessionID)
	}

	active, _ := sessions.ActiveSession(task.ID, "tech-1")
	if active != nil {
		t.Error("expected session closed after emergency checkout")
	}
}

func TestEntriesInRangeScopedToPersonAndWindow(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Panel upgrade", "WO-107", "Acme HVAC")

	mine, err := sessions.CheckIn(task.ID, "tech-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.CheckOut(mine.SessionID, "tech-1", mine.CheckInTime.Format(time.RFC3339), 1.5, ""); err != nil {
		t.Fatal(err)
	}

	theirs, err := sessions.CheckIn(task.ID, "tech-2", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.CheckOut(theirs.SessionID, "tech-2", theirs.CheckInTime.Format(time.RFC3339), 2, ""); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	entries, err := sessions.EntriesInRange("tech-1", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("range query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for tech-1, got %d", len(entries))
	}
	if entries[0].Hours != 1.5 {
		t.Errorf("expected 1.5 hours, got %v", entries[0].Hours)
	}

	past, err := sessions.EntriesInRange("tech-1", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(past) != 0 {
		t.Errorf("expected no entries outside the window, got %d", len(past))
	}
}

func TestHeartbeatStampsActiveSession(t *testing.T) {
	t.Parallel()
	sessions, tasks := newTestServices(t)
	task, _ := tasks.CreateTask("Duct cleaning", "WO-106", "Acme HVAC")

	session, err := sessions.CheckIn(task.ID, "tech-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := sessions.Heartbeat(session.SessionID); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}

	active, err := sessions.ActiveSession(task.ID, "tech-1")
	if err != nil {
		t.Fatal(err)
	}
	if active.LastHeartbeat == nil {
		t.Error("expected heartbeat timestamp to be recorded")
	}

	if err := sessions.Heartbeat("srv-missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for unknown session, got %v", err)
	}
}
