package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"dressup/internal/model"
	"dressup/internal/session"
	"dressup/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Store) {
	t.Helper()
	repo := session.NewRepository(storage.NewMemoryKV(), 0)
	notifier := session.NewNotifier()
	store := session.NewStore(repo, notifier)
	watcher := session.NewWatcher(store, notifier)

	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/sessions/{sessionID}", NewHandler(watcher).Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) session.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev session.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestServeStreamsUpdates(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	s, err := store.Create(ctx, "Host")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	conn := dial(t, srv, "/v1/ws/sessions/"+s.ID)

	first := readEvent(t, conn)
	if first.Type != session.EventSessionUpdate {
		t.Fatalf("expected initial session_update, got %s", first.Type)
	}
	if first.Session == nil || first.Session.ID != s.ID {
		t.Fatal("event should carry the snapshot")
	}

	if _, _, err := store.Join(ctx, s.ID, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	second := readEvent(t, conn)
	if second.Type != session.EventSessionUpdate {
		t.Fatalf("expected session_update after join, got %s", second.Type)
	}
	if len(second.Session.Players) != 1 {
		t.Fatalf("snapshot should include the joined player, got %d", len(second.Session.Players))
	}
	if second.Session.Players[0].Status != model.PlayerPending {
		t.Fatalf("joined player should be pending, got %s", second.Session.Players[0].Status)
	}
}

func TestServeUnknownSessionTerminates(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "/v1/ws/sessions/ZZZZZZ")

	ev := readEvent(t, conn)
	if ev.Type != session.EventSessionNotFound {
		t.Fatalf("expected session_not_found, got %s", ev.Type)
	}

	// The server follows the terminal event with a normal close.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected a normal close, got %v", err)
	}
}

func TestServeRejectsWrongHostSecret(t *testing.T) {
	srv, store := newTestServer(t)
	s, err := store.Create(context.Background(), "Host")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	conn := dial(t, srv, "/v1/ws/sessions/"+s.ID+"?hostSecret=wrong")
	ev := readEvent(t, conn)
	if ev.Type != session.EventForbidden {
		t.Fatalf("expected forbidden, got %s", ev.Type)
	}
}
