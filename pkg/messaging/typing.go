package messaging

import (
	"sync"
	"time"
)

// DefaultTypingTTL is the idle window after which a typing indicator
// expires on its own when the client never sends stopTyping.
const DefaultTypingTTL = 2 * time.Second

type typingKey struct {
	threadID string
	userID   string
}

// typingTracker holds ephemeral per-(thread,user) typing state. Nothing
// is persisted; entries expire after the TTL, on explicit stop, or when
// the user's last connection goes away.
type typingTracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	active   map[typingKey]*typingEntry
	onExpire func(threadID, userID, receiverID string)
}

type typingEntry struct {
	receiverID string
	timer      *time.Timer
}

func newTypingTracker(ttl time.Duration, onExpire func(threadID, userID, receiverID string)) *typingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &typingTracker{
		ttl:      ttl,
		active:   map[typingKey]*typingEntry{},
		onExpire: onExpire,
	}
}

// start marks (threadID, userID) as typing toward receiverID, resetting
// the expiry window if already active.
func (t *typingTracker) start(threadID, userID, receiverID string) {
	k := typingKey{threadID: threadID, userID: userID}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.active[k]; ok {
		e.receiverID = receiverID
		e.timer.Reset(t.ttl)
		return
	}
	e := &typingEntry{receiverID: receiverID}
	e.timer = time.AfterFunc(t.ttl, func() { t.expire(k) })
	t.active[k] = e
}

// stop clears the typing state; returns false when it was not active.
func (t *typingTracker) stop(threadID, userID string) bool {
	k := typingKey{threadID: threadID, userID: userID}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.active[k]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.active, k)
	return true
}

// stopAllFor clears every typing entry owned by userID and returns the
// (threadID, receiverID) pairs that were active, so the caller can emit
// stopTyping on disconnect.
func (t *typingTracker) stopAllFor(userID string) [][2]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out [][2]string
	for k, e := range t.active {
		if k.userID != userID {
			continue
		}
		e.timer.Stop()
		delete(t.active, k)
		out = append(out, [2]string{k.threadID, e.receiverID})
	}
	return out
}

func (t *typingTracker) expire(k typingKey) {
	t.mu.Lock()
	e, ok := t.active[k]
	if ok {
		delete(t.active, k)
	}
	t.mu.Unlock()
	if ok && t.onExpire != nil {
		t.onExpire(k.threadID, k.userID, e.receiverID)
	}
}

// isTyping reports whether (threadID, userID) currently has live typing
// state. Exposed for tests.
func (t *typingTracker) isTyping(threadID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[typingKey{threadID: threadID, userID: userID}]
	return ok
}
