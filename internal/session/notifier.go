package session

import "sync"

// Notifier is an in-process broadcast of "this session changed" signals. The
// state machine publishes after every successful save; live feeds subscribe so
// they can re-read immediately instead of waiting out their poll interval.
// Signals carry no payload, subscribers always re-read authoritative state.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers interest in a session. The returned cancel func must be
// called when the subscriber goes away or the channel set leaks.
func (n *Notifier) Subscribe(sessionID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	set, ok := n.subs[sessionID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if set, ok := n.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(n.subs, sessionID)
			}
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Notify wakes every subscriber of the session. Non-blocking: a subscriber
// that already has a pending signal is not queued twice.
func (n *Notifier) Notify(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
