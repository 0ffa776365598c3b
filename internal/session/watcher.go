package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"dressup/internal/model"
)

// Event is one typed message on a live view stream.
type Event struct {
	Type    string          `json:"type"`
	Session *model.Snapshot `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
}

const (
	EventSessionUpdate   = "session_update"
	EventSessionNotFound = "session_not_found"
	EventForbidden       = "forbidden"
	EventError           = "error"
)

const (
	// DefaultPollInterval bounds staleness when no change notification
	// arrives (e.g. a mutation from another process sharing the store).
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultHeartbeatInterval keeps idle connections alive through proxies.
	DefaultHeartbeatInterval = 30 * time.Second
)

// Watcher implements the live view feed: a per-client cooperative loop that
// re-reads the session, compares against the last pushed state, and emits a
// snapshot on change. It is a pure read-side observer; nothing here blocks
// the state machine. Change notifications from the store's notifier wake the
// loop early, the poll ticker is the safety net.
type Watcher struct {
	store     *Store
	notifier  *Notifier
	interval  time.Duration
	heartbeat time.Duration
}

// NewWatcher builds a watcher over the store and notifier.
func NewWatcher(store *Store, notifier *Notifier) *Watcher {
	return &Watcher{
		store:     store,
		notifier:  notifier,
		interval:  DefaultPollInterval,
		heartbeat: DefaultHeartbeatInterval,
	}
}

// Watch streams events for one client until ctx is cancelled (client
// disconnect) or a terminal event (session_not_found, forbidden) is sent.
// playerID and hostSecret scope access: a non-empty hostSecret must validate,
// a non-empty playerID must belong to the session. send pushes one event to
// the client; keepalive sends a transport-level heartbeat. An error from
// either callback ends the watch (the transport is gone).
func (w *Watcher) Watch(ctx context.Context, sessionID, playerID, hostSecret string, send func(Event) error, keepalive func() error) error {
	changes, unsubscribe := w.notifier.Subscribe(sessionID)
	defer unsubscribe()

	var lastUpdated int64 = -1
	lastPlayerCount := -1

	check := func() (done bool, err error) {
		s, loadErr := w.store.Repository().Load(ctx, sessionID)
		if loadErr != nil {
			// Transient read failure: report, keep the stream open and
			// try again on the next tick.
			log.Warn().Err(loadErr).Str("session", sessionID).Msg("live feed read failed")
			return false, send(Event{Type: EventError, Message: "failed to fetch session"})
		}
		if s == nil {
			if err := send(Event{Type: EventSessionNotFound}); err != nil {
				return true, err
			}
			return true, nil
		}
		if hostSecret != "" && s.HostSecret != hostSecret {
			if err := send(Event{Type: EventForbidden}); err != nil {
				return true, err
			}
			return true, nil
		}
		if playerID != "" && s.Player(playerID) == nil {
			if err := send(Event{Type: EventForbidden}); err != nil {
				return true, err
			}
			return true, nil
		}

		if s.UpdatedAt != lastUpdated || len(s.Players) != lastPlayerCount {
			lastUpdated = s.UpdatedAt
			lastPlayerCount = len(s.Players)
			return false, send(Event{Type: EventSessionUpdate, Session: model.NewSnapshot(s)})
		}
		return false, nil
	}

	// Initial snapshot before settling into the change loop.
	if done, err := check(); done || err != nil {
		return err
	}

	poll := time.NewTicker(w.interval)
	defer poll.Stop()
	beat := time.NewTicker(w.heartbeat)
	defer beat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		case <-poll.C:
		case <-beat.C:
			if err := keepalive(); err != nil {
				return err
			}
			continue
		}
		if done, err := check(); done || err != nil {
			return err
		}
	}
}
