package cache

import (
	"log/slog"
	"testing"
	"time"

	"github.com/fieldops/punchcard/internal/models"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func session(taskID uint, sessionID string) models.CheckInSession {
	return models.CheckInSession{
		SessionID:   sessionID,
		TaskID:      taskID,
		PersonID:    "tech-1",
		CheckInTime: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		IsActive:    true,
	}
}

func TestPutUpsertsByTask(t *testing.T) {
	t.Parallel()
	c := NewSessionCache(NewMemKV(), testLogger())

	c.Put(session(1, "a"))
	c.Put(session(1, "b"))
	c.Put(session(1, "c"))

	all := c.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected 1 cached session for task 1, got %d", len(all))
	}
	if all[0].SessionID != "c" {
		t.Errorf("expected last put to win, got session %q", all[0].SessionID)
	}
}

func TestPutKeepsDistinctTasks(t *testing.T) {
	t.Parallel()
	c := NewSessionCache(NewMemKV(), testLogger())

	c.Put(session(1, "a"))
	c.Put(session(2, "b"))

	if got := len(c.GetAll()); got != 2 {
		t.Fatalf("expected 2 cached sessions, got %d", got)
	}
	if _, ok := c.Get(2); !ok {
		t.Error("expected a cached session for task 2")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	c := NewSessionCache(NewMemKV(), testLogger())

	c.Put(session(1, "a"))
	c.Remove(1)
	c.Remove(1)

	if _, ok := c.Get(1); ok {
		t.Error("expected no cached session for task 1 after remove")
	}
	if got := len(c.GetAll()); got != 0 {
		t.Errorf("expected empty cache, got %d entries", got)
	}
}

func TestRemoveMissingTaskIsNoop(t *testing.T) {
	t.Parallel()
	c := NewSessionCache(NewMemKV(), testLogger())

	c.Put(session(1, "a"))
	c.Remove(99)

	if got := len(c.GetAll()); got != 1 {
		t.Errorf("expected cache untouched, got %d entries", got)
	}
}

func TestCorruptStorageFailsSoft(t *testing.T) {
	t.Parallel()
	kv := NewMemKV()
	if err := kv.Set("sessions", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	c := NewSessionCache(kv, testLogger())

	if got := len(c.GetAll()); got != 0 {
		t.Fatalf("expected empty result from corrupt storage, got %d", got)
	}

	// Cache must remain writable after hitting corruption.
	c.Put(session(1, "a"))
	if got := len(c.GetAll()); got != 1 {
		t.Errorf("expected cache to recover after corruption, got %d entries", got)
	}
}

func TestFileKVSurvivesReload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	c := NewSessionCache(NewFileKV(dir), testLogger())
	c.Put(session(7, "srv-1"))

	// A fresh cache over the same directory simulates a process restart.
	c2 := NewSessionCache(NewFileKV(dir), testLogger())
	got, ok := c2.Get(7)
	if !ok {
		t.Fatal("expected session for task 7 to survive reload")
	}
	if got.SessionID != "srv-1" {
		t.Errorf("expected session srv-1, got %q", got.SessionID)
	}
	if !got.IsActive {
		t.Error("expected session to still be active")
	}
}

func TestFileKVRemoveMissingFile(t *testing.T) {
	t.Parallel()
	kv := NewFileKV(t.TempDir())
	if err := kv.Remove("sessions"); err != nil {
		t.Errorf("remove of missing key should be a no-op, got %v", err)
	}
}
