package realtime

import "sync"

// Registry tracks every live connection per user identity. All mutations are
// linearized under one mutex so a "became offline" transition can never be
// computed ahead of the "became online" that preceded it.
//
// The registry is the single source of truth for presence: a user is online
// iff their connection set is non-empty.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]*Connection // userID -> connID -> connection

	onFirst func(userID string) // first connection for an identity appeared
	onLast  func(userID string) // last connection for an identity went away
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]*Connection)}
}

// SetPresenceHooks installs the transition callbacks. Hooks run after the
// registry mutation completes, outside the lock, so they may consult the
// registry again; a hook observing a newer state than the transition it was
// called for must treat the newer state as authoritative.
func (r *Registry) SetPresenceHooks(onFirst, onLast func(userID string)) {
	r.mu.Lock()
	r.onFirst = onFirst
	r.onLast = onLast
	r.mu.Unlock()
}

// Register adds conn to its identity's set. Registering the same connection
// twice is harmless (last write wins).
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	set := r.conns[conn.UserID]
	first := len(set) == 0
	if set == nil {
		set = make(map[string]*Connection)
		r.conns[conn.UserID] = set
	}
	set[conn.ID] = conn
	hook := r.onFirst
	r.mu.Unlock()

	if first && hook != nil {
		hook(conn.UserID)
	}
}

// Unregister removes conn. The transport layer's disconnect callback is the
// only call site, and it covers abnormal drops too.
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	set := r.conns[conn.UserID]
	if set == nil {
		r.mu.Unlock()
		return
	}
	if _, ok := set[conn.ID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(set, conn.ID)
	last := len(set) == 0
	if last {
		delete(r.conns, conn.UserID)
	}
	hook := r.onLast
	r.mu.Unlock()

	if last && hook != nil {
		hook(conn.UserID)
	}
}

// ConnectionsFor returns the live connections of an identity. An unknown or
// offline identity yields an empty slice, not an error: sends still succeed,
// delivery is best-effort.
func (r *Registry) ConnectionsFor(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// AllExcept returns every live connection not belonging to userID. Used for
// presence broadcasts, which a user does not receive about themselves.
func (r *Registry) AllExcept(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Connection
	for uid, set := range r.conns {
		if uid == userID {
			continue
		}
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

// IsOnline reports whether the identity has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Close terminates every tracked connection and clears the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, set := range conns {
		for _, c := range set {
			c.Close(1001, "server shutting down")
		}
	}
}
