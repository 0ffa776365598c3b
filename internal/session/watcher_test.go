package session

import (
	"context"
	"testing"
	"time"
)

func newTestWatcher(st *Store) *Watcher {
	w := NewWatcher(st, st.notifier)
	w.interval = 10 * time.Millisecond
	w.heartbeat = time.Hour
	return w
}

func collectEvents(ctx context.Context, w *Watcher, sessionID, playerID, hostSecret string) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	done := make(chan error, 1)
	go func() {
		err := w.Watch(ctx, sessionID, playerID, hostSecret, func(ev Event) error {
			events <- ev
			return nil
		}, func() error { return nil })
		done <- err
	}()
	return events, done
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return Event{}
	}
}

func TestWatchEmitsInitialSnapshotAndUpdates(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, _ := createWithPlayers(t, st, "Alice")

	events, done := collectEvents(ctx, newTestWatcher(st), s.ID, "", "")

	first := waitEvent(t, events)
	if first.Type != EventSessionUpdate {
		t.Fatalf("expected initial session_update, got %s", first.Type)
	}
	if first.Session == nil || first.Session.ID != s.ID {
		t.Fatal("initial event should carry the snapshot")
	}

	if _, err := st.UpdateAPIKey(ctx, s.ID, "key"); err != nil {
		t.Fatalf("update: %v", err)
	}
	second := waitEvent(t, events)
	if second.Type != EventSessionUpdate {
		t.Fatalf("expected session_update after mutation, got %s", second.Type)
	}
	if !second.Session.HasAPIKey {
		t.Fatal("snapshot should report the configured key without exposing it")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch should end cleanly on disconnect: %v", err)
	}
}

func TestWatchSeesImmediateMutation(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, _ := createWithPlayers(t, st, "Alice")

	events, _ := collectEvents(ctx, newTestWatcher(st), s.ID, "", "")
	waitEvent(t, events)

	// Mutations fired immediately after the initial snapshot land within the
	// same millisecond as the observed state; each must still be delivered.
	if _, err := st.UpdateAPIKey(ctx, s.ID, "k1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	ev := waitEvent(t, events)
	if ev.Type != EventSessionUpdate || !ev.Session.HasAPIKey {
		t.Fatalf("first mutation not delivered: %+v", ev)
	}

	if _, err := st.UpdateAPIKey(ctx, s.ID, "k2"); err != nil {
		t.Fatalf("update: %v", err)
	}
	ev = waitEvent(t, events)
	if ev.Type != EventSessionUpdate {
		t.Fatalf("second mutation not delivered: %+v", ev)
	}
}

func TestWatchUnknownSessionIsTerminal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	events, done := collectEvents(ctx, newTestWatcher(st), "NOPE42", "", "")

	ev := waitEvent(t, events)
	if ev.Type != EventSessionNotFound {
		t.Fatalf("expected session_not_found, got %s", ev.Type)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("terminal event should end the watch cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch should stop after a terminal event")
	}
}

func TestWatchRejectsWrongHostSecret(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	s, _ := createWithPlayers(t, st, "Alice")

	events, done := collectEvents(ctx, newTestWatcher(st), s.ID, "", "wrong")

	ev := waitEvent(t, events)
	if ev.Type != EventForbidden {
		t.Fatalf("expected forbidden, got %s", ev.Type)
	}
	if err := <-done; err != nil {
		t.Fatalf("terminal event should end the watch cleanly: %v", err)
	}
}

func TestWatchRejectsUnknownPlayer(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	s, _ := createWithPlayers(t, st, "Alice")

	events, done := collectEvents(ctx, newTestWatcher(st), s.ID, "ghost", "")

	ev := waitEvent(t, events)
	if ev.Type != EventForbidden {
		t.Fatalf("expected forbidden, got %s", ev.Type)
	}
	if err := <-done; err != nil {
		t.Fatalf("terminal event should end the watch cleanly: %v", err)
	}
}

func TestWatchDeduplicatesUnchangedState(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, _ := createWithPlayers(t, st, "Alice")

	events, _ := collectEvents(ctx, newTestWatcher(st), s.ID, "", "")
	waitEvent(t, events)

	// Several poll intervals with no mutation: nothing further is pushed.
	time.Sleep(60 * time.Millisecond)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for unchanged state: %s", ev.Type)
	default:
	}
}
