package session

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(time.Hour)
	t.Cleanup(m.Stop)
	return m
}

func TestManagerCreateAssignsUniqueIDs(t *testing.T) {
	m := newTestManager(t)

	a := m.Create()
	b := m.Create()

	if a.ID == "" || b.ID == "" {
		t.Fatal("sessions must have non-empty IDs")
	}
	if a.ID == b.ID {
		t.Fatalf("two sessions share ID %q", a.ID)
	}
	if got := m.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestManagerGetReturnsSameSession(t *testing.T) {
	m := newTestManager(t)

	created := m.Create()
	got, ok := m.Get(created.ID)
	if !ok {
		t.Fatalf("Get(%q) did not find the session", created.ID)
	}
	if got != created {
		t.Error("Get returned a different session instance")
	}

	if _, ok := m.Get("no-such-session"); ok {
		t.Error("Get found a session for an unknown ID")
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m := newTestManager(t)

	created := m.Create()

	if got := m.GetOrCreate(created.ID); got != created {
		t.Error("GetOrCreate with a known ID should return the existing session")
	}

	fresh := m.GetOrCreate("")
	if fresh == created {
		t.Error("GetOrCreate with an empty ID should create a new session")
	}

	// An expired or bogus ID starts the guest over rather than failing.
	replaced := m.GetOrCreate("expired-session-id")
	if replaced.ID == "expired-session-id" {
		t.Error("GetOrCreate must not resurrect an unknown ID")
	}
	if replaced.State() != StateAnonymous {
		t.Errorf("new session state = %v, want anonymous", replaced.State())
	}
}

func TestManagerRemove(t *testing.T) {
	m := newTestManager(t)

	created := m.Create()
	m.Remove(created.ID)

	if _, ok := m.Get(created.ID); ok {
		t.Error("removed session is still retrievable")
	}
	if got := m.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}

	// Removing twice is harmless.
	m.Remove(created.ID)
}
