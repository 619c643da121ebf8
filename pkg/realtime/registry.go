package realtime

import (
	"sort"
	"sync"

	"pulsechat/pkg/telemetry"
)

// Registry tracks every live handle grouped by user. It is the single
// authority on who is online: the first handle of a user flips them
// online, the last one gone flips them offline, and each flip fires the
// transition callback exactly once no matter how many handles churn
// concurrently.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]*Conn

	onTransition func(userID string, online bool)
}

func NewRegistry() *Registry {
	return &Registry{users: map[string]map[string]*Conn{}}
}

// OnTransition sets the callback fired on every online/offline flip.
// Set it before any handle registers; the callback runs outside the
// registry lock, so it may call back into the registry.
func (r *Registry) OnTransition(fn func(userID string, online bool)) {
	r.mu.Lock()
	r.onTransition = fn
	r.mu.Unlock()
}

// Register adds a handle. The online transition, if any, is decided
// under the lock and fired after it is released.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	set, ok := r.users[c.UserID]
	if !ok {
		set = map[string]*Conn{}
		r.users[c.UserID] = set
	}
	set[c.ID] = c
	first := len(set) == 1
	fn := r.onTransition
	r.mu.Unlock()

	telemetry.ConnectionsActive.Inc()
	if first {
		telemetry.UsersOnline.Inc()
		if fn != nil {
			fn(c.UserID, true)
		}
	}
}

// Unregister removes a handle. Idempotent: removing a handle that is
// already gone does nothing and fires no transition.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	set, ok := r.users[c.UserID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := set[c.ID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(set, c.ID)
	last := len(set) == 0
	if last {
		delete(r.users, c.UserID)
	}
	fn := r.onTransition
	r.mu.Unlock()

	telemetry.ConnectionsActive.Dec()
	if last {
		telemetry.UsersOnline.Dec()
		if fn != nil {
			fn(c.UserID, false)
		}
	}
}

// IsOnline reports whether the user has at least one live handle.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// HandlesFor returns a snapshot of the user's live handles.
func (r *Registry) HandlesFor(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every live handle.
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Conn
	for _, set := range r.users {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Users returns the sorted IDs of all online users.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// CloseAll shuts every handle down, used on server shutdown. Transitions
// fire through the usual Unregister path as read loops unwind.
func (r *Registry) CloseAll() {
	for _, c := range r.All() {
		c.Close()
	}
}
