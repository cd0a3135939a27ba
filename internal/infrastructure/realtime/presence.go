package realtime

import (
	"sync"
	"time"
)

// DefaultOfflineDebounce absorbs rapid disconnect/reconnect cycles (page
// reloads) so peers don't see a spurious offline flap.
const DefaultOfflineDebounce = 3 * time.Second

// Presence derives online/offline status from registry transitions and
// reports them through a notify callback. Online is reported immediately;
// offline is debounced, and a reconnect inside the window suppresses both
// the offline and the follow-up online event entirely.
//
// Notifications are fire-and-forget: a client that misses one resyncs with
// an explicit status check on its next connect.
type Presence struct {
	reg      *Registry
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer // userID -> scheduled offline signal

	notify func(userID string, online bool)
}

// NewPresence wires a Presence tracker onto the registry's transition hooks.
// A non-positive debounce falls back to DefaultOfflineDebounce.
func NewPresence(reg *Registry, debounce time.Duration) *Presence {
	if debounce <= 0 {
		debounce = DefaultOfflineDebounce
	}
	p := &Presence{
		reg:      reg,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
	reg.SetPresenceHooks(p.becameOnline, p.becameOffline)
	return p
}

// SetNotify installs the broadcast callback. Must be set before connections
// are accepted; the callback must not block.
func (p *Presence) SetNotify(fn func(userID string, online bool)) {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
}

// IsOnline answers the synchronous status-check request a client issues on
// connect, which closes the race against broadcasts sent before it subscribed.
func (p *Presence) IsOnline(userID string) bool {
	return p.reg.IsOnline(userID)
}

func (p *Presence) becameOnline(userID string) {
	p.mu.Lock()
	if t, ok := p.pending[userID]; ok {
		// Reconnected inside the debounce window: the peer never saw an
		// offline, so no online needs to be announced either.
		t.Stop()
		delete(p.pending, userID)
		p.mu.Unlock()
		return
	}
	fn := p.notify
	p.mu.Unlock()

	if fn != nil {
		fn(userID, true)
	}
}

func (p *Presence) becameOffline(userID string) {
	p.mu.Lock()
	if t, ok := p.pending[userID]; ok {
		t.Stop()
	}
	p.pending[userID] = time.AfterFunc(p.debounce, func() { p.fireOffline(userID) })
	p.mu.Unlock()
}

func (p *Presence) fireOffline(userID string) {
	p.mu.Lock()
	delete(p.pending, userID)
	fn := p.notify
	p.mu.Unlock()

	// The user may have reconnected between scheduling and firing; the
	// registry is authoritative.
	if p.reg.IsOnline(userID) {
		return
	}
	if fn != nil {
		fn(userID, false)
	}
}
