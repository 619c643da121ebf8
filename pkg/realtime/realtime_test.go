package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeSocket records frames written by writeLoop.
type fakeSocket struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == 1 { // text
		f.frames = append(f.frames, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) texts() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegistry_TransitionsFireOncePerFlip(t *testing.T) {
	reg := NewRegistry()
	var mu sync.Mutex
	flips := map[string]int{}
	reg.OnTransition(func(userID string, online bool) {
		mu.Lock()
		defer mu.Unlock()
		key := userID + ":offline"
		if online {
			key = userID + ":online"
		}
		flips[key]++
	})

	c1 := newConn("c1", "alice", &fakeSocket{}, 1)
	c2 := newConn("c2", "alice", &fakeSocket{}, 1)

	reg.Register(c1)
	reg.Register(c2)
	if !reg.IsOnline("alice") {
		t.Fatalf("alice must be online")
	}
	reg.Unregister(c1)
	if !reg.IsOnline("alice") {
		t.Fatalf("alice still has a handle")
	}
	reg.Unregister(c2)
	reg.Unregister(c2) // idempotent
	if reg.IsOnline("alice") {
		t.Fatalf("alice must be offline")
	}

	mu.Lock()
	defer mu.Unlock()
	if flips["alice:online"] != 1 || flips["alice:offline"] != 1 {
		t.Fatalf("transition count wrong: %v", flips)
	}
}

func TestRegistry_ConcurrentChurnSingleTransitions(t *testing.T) {
	reg := NewRegistry()
	var online, offline int32
	var mu sync.Mutex
	reg.OnTransition(func(_ string, on bool) {
		mu.Lock()
		defer mu.Unlock()
		if on {
			online++
		} else {
			offline++
		}
	})

	const n = 32
	conns := make([]*Conn, n)
	for i := range conns {
		conns[i] = newConn(fmt.Sprintf("c%d", i), "alice", &fakeSocket{}, 1)
	}
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) { defer wg.Done(); reg.Register(c) }(c)
	}
	wg.Wait()
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) { defer wg.Done(); reg.Unregister(c) }(c)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if online != 1 || offline != 1 {
		t.Fatalf("got %d online / %d offline transitions, want 1/1", online, offline)
	}
}

func TestRouter_DeliverAllHandlesOfUser(t *testing.T) {
	reg := NewRegistry()
	r := NewRouter(reg)

	s1, s2, s3 := &fakeSocket{}, &fakeSocket{}, &fakeSocket{}
	c1 := newConn("c1", "alice", s1, 8)
	c2 := newConn("c2", "alice", s2, 8)
	c3 := newConn("c3", "bob", s3, 8)
	for _, c := range []*Conn{c1, c2, c3} {
		go c.writeLoop()
		reg.Register(c)
	}
	defer reg.CloseAll()

	r.Deliver("alice", "new_message", map[string]string{"text": "hi"})

	waitFor(t, func() bool { return len(s1.texts()) == 1 && len(s2.texts()) == 1 }, "both alice handles get the frame")
	if len(s3.texts()) != 0 {
		t.Fatalf("bob must not receive alice's event")
	}

	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(s1.texts()[0], &env); err != nil {
		t.Fatalf("bad frame: %v", err)
	}
	if env.Event != "new_message" {
		t.Fatalf("wrong event: %s", env.Event)
	}
}

func TestRouter_SlowHandleIsIsolated(t *testing.T) {
	reg := NewRegistry()
	r := NewRouter(reg)

	healthy := &fakeSocket{}
	c1 := newConn("c1", "alice", healthy, 8)
	go c1.writeLoop()
	reg.Register(c1)

	// stuck handle: no writeLoop draining, buffer of 1
	stuck := &fakeSocket{}
	c2 := newConn("c2", "alice", stuck, 1)
	reg.Register(c2)

	r.Deliver("alice", "e1", "a") // fills c2's buffer
	r.Deliver("alice", "e2", "b") // c2 overflows and is closed

	waitFor(t, func() bool { return len(healthy.texts()) == 2 }, "healthy handle gets both events")
	select {
	case <-c2.done:
	default:
		t.Fatalf("overflowing handle must be closed")
	}
}

func TestRouter_DeliverAll(t *testing.T) {
	reg := NewRegistry()
	r := NewRouter(reg)

	s1, s2 := &fakeSocket{}, &fakeSocket{}
	c1 := newConn("c1", "alice", s1, 8)
	c2 := newConn("c2", "bob", s2, 8)
	for _, c := range []*Conn{c1, c2} {
		go c.writeLoop()
		reg.Register(c)
	}
	defer reg.CloseAll()

	r.DeliverAll("user_status", StatusEvent{UserID: "carol", Status: "online"})
	waitFor(t, func() bool { return len(s1.texts()) == 1 && len(s2.texts()) == 1 }, "broadcast reaches everyone")
}

// fakeActions records dispatch calls.
type fakeActions struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeActions) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeActions) Typing(userID, threadID, receiverID string) {
	f.record("typing:" + userID + ":" + threadID + ":" + receiverID)
}
func (f *fakeActions) StopTyping(userID, threadID, receiverID string) {
	f.record("stopTyping:" + userID + ":" + threadID + ":" + receiverID)
}
func (f *fakeActions) RelayRead(readerID, messageID, threadID, senderID string) {
	f.record("read:" + readerID + ":" + messageID + ":" + senderID)
}
func (f *fakeActions) ReleaseTyping(userID string) { f.record("release:" + userID) }

func (f *fakeActions) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestHub_DispatchClientFrames(t *testing.T) {
	fa := &fakeActions{}
	h := NewHub(Options{})
	h.Bind(fa)

	frame := func(event, data string) clientFrame {
		return clientFrame{Event: event, Data: json.RawMessage(data)}
	}

	h.dispatch("alice", frame("typing", `{"threadId":"t1","receiverId":"bob"}`))
	h.dispatch("alice", frame("stopTyping", `{"threadId":"t1","receiverId":"bob"}`))
	h.dispatch("bob", frame("message_read", `{"messageId":"m1","threadId":"t1","senderId":"alice"}`))
	// malformed and unknown frames are ignored
	h.dispatch("alice", frame("typing", `{"threadId":""}`))
	h.dispatch("alice", frame("nonsense", `{}`))

	got := fa.all()
	want := []string{
		"typing:alice:t1:bob",
		"stopTyping:alice:t1:bob",
		"read:bob:m1:alice",
	}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestHub_PresenceBroadcast(t *testing.T) {
	h := NewHub(Options{})
	h.Bind(&fakeActions{})

	watcher := &fakeSocket{}
	cw := newConn("cw", "watcher", watcher, 8)
	go cw.writeLoop()
	h.Registry().Register(cw)
	defer h.Shutdown()

	// watcher's own online flip is broadcast too
	waitFor(t, func() bool { return len(watcher.texts()) == 1 }, "own status frame")

	ca := newConn("ca", "alice", &fakeSocket{}, 8)
	h.Registry().Register(ca)
	waitFor(t, func() bool { return len(watcher.texts()) == 2 }, "alice online frame")

	h.Registry().Unregister(ca)
	waitFor(t, func() bool { return len(watcher.texts()) == 3 }, "alice offline frame")

	var env struct {
		Event string      `json:"event"`
		Data  StatusEvent `json:"data"`
	}
	if err := json.Unmarshal(watcher.texts()[2], &env); err != nil {
		t.Fatalf("bad frame: %v", err)
	}
	if env.Event != EventUserStatus || env.Data.UserID != "alice" || env.Data.Status != "offline" {
		t.Fatalf("wrong status frame: %+v", env)
	}

	online := h.Online()
	if len(online) != 1 || online[0] != "watcher" {
		t.Fatalf("online list wrong: %v", online)
	}
}
