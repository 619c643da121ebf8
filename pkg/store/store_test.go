package store

import (
	"fmt"
	"sync"
	"testing"

	"pulsechat/pkg/models"
)

func openTest(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestFindOrCreateThread_SinglePerPair(t *testing.T) {
	openTest(t)

	t1, err := FindOrCreateThread("alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// reversed pair must resolve to the same thread
	t2, err := FindOrCreateThread("bob", "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if t1.ID != t2.ID {
		t.Fatalf("pair produced two threads: %s vs %s", t1.ID, t2.ID)
	}
	if len(t1.Participants) != 2 || t1.Participants[0] > t1.Participants[1] {
		t.Fatalf("participants not canonical: %v", t1.Participants)
	}
}

func TestFindOrCreateThread_ConcurrentFirstContact(t *testing.T) {
	openTest(t)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "u2"
			if i%2 == 0 {
				a, b = b, a
			}
			th, err := FindOrCreateThread(a, b)
			if err != nil {
				t.Errorf("find-or-create: %v", err)
				return
			}
			ids[i] = th.ID
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("racing first contact created multiple threads: %s vs %s", ids[0], ids[i])
		}
	}
}

func TestMessages_OrderAndPaging(t *testing.T) {
	openTest(t)

	th, _ := FindOrCreateThread("a", "b")
	for i := 0; i < 5; i++ {
		m := models.Message{ID: fmt.Sprintf("m%d", i), Thread: th.ID, Sender: "a", Receiver: "b", Text: fmt.Sprintf("msg %d", i)}
		if err := SaveMessage(&m); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	all, err := ListMessages(th.ID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d messages, want 5", len(all))
	}
	for i, m := range all {
		if m.ID != fmt.Sprintf("m%d", i) {
			t.Fatalf("order broken at %d: %s", i, m.ID)
		}
	}

	page2, err := ListMessages(th.ID, 2, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != "m2" || page2[1].ID != "m3" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}
}

func TestUpdateMessage_ConcurrentUpdatesKeepAllWrites(t *testing.T) {
	openTest(t)

	th, _ := FindOrCreateThread("a", "b")
	m := models.Message{ID: "m1", Thread: th.ID, Sender: "a", Receiver: "b", Text: "hi"}
	if err := SaveMessage(&m); err != nil {
		t.Fatalf("save: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := UpdateMessage("m1", func(m *models.Message) error {
				m.ReadBy = append(m.ReadBy, models.ReadReceipt{User: fmt.Sprintf("u%d", i), ReadAt: int64(i)})
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := GetMessage("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.ReadBy) != n {
		t.Fatalf("lost writes: got %d receipts, want %d", len(got.ReadBy), n)
	}
	// thread entry must carry the same state as the by-ID index
	msgs, _ := ListMessages(th.ID, 0, 0)
	if len(msgs) != 1 || len(msgs[0].ReadBy) != n {
		t.Fatalf("thread entry out of sync: %+v", msgs)
	}
}

func TestUpdateMessage_Missing(t *testing.T) {
	openTest(t)
	_, err := UpdateMessage("nope", func(*models.Message) error { return nil })
	if err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestClearThread(t *testing.T) {
	openTest(t)

	th, _ := FindOrCreateThread("a", "b")
	m := models.Message{ID: "m1", Thread: th.ID, Sender: "a", Receiver: "b", Text: "hi"}
	_ = SaveMessage(&m)
	_ = UpdateThreadLastMessage(th.ID, m.Text, m.CreatedTS)

	if err := ClearThread(th.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, _ := ListMessages(th.ID, 0, 0)
	if len(msgs) != 0 {
		t.Fatalf("messages survived clear: %d", len(msgs))
	}
	if _, err := GetMessage("m1"); err != ErrNotFound {
		t.Fatalf("by-id index survived clear: %v", err)
	}
	got, err := GetThread(th.ID)
	if err != nil {
		t.Fatalf("thread must survive clear: %v", err)
	}
	if got.ClearedTS == 0 || got.LastMessageTS != 0 || got.LastMessageText != "" {
		t.Fatalf("thread not reset: %+v", got)
	}
	// pair index intact: same thread on next contact
	again, _ := FindOrCreateThread("a", "b")
	if again.ID != th.ID {
		t.Fatalf("clear broke pair index: %s vs %s", again.ID, th.ID)
	}
}

func TestListThreadsFor_SortsByActivity(t *testing.T) {
	openTest(t)

	t1, _ := FindOrCreateThread("me", "x")
	t2, _ := FindOrCreateThread("me", "y")
	_, _ = FindOrCreateThread("x", "y") // not mine

	_ = UpdateThreadLastMessage(t1.ID, "old", 100)
	_ = UpdateThreadLastMessage(t2.ID, "new", 200)

	out, err := ListThreadsFor("me")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d threads, want 2", len(out))
	}
	if out[0].ID != t2.ID || out[1].ID != t1.ID {
		t.Fatalf("wrong order: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestUsers_UniqueEmailAndPhone(t *testing.T) {
	openTest(t)

	u := models.User{ID: "u1", Name: "A", Email: "A@Example.com", Phone: "+100", PasswordHash: "x"}
	if err := CreateUser(u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := models.User{ID: "u2", Name: "B", Email: "a@example.com", Phone: "+200", PasswordHash: "x"}
	if err := CreateUser(dup); err != ErrUserExists {
		t.Fatalf("duplicate email accepted: %v", err)
	}
	dup2 := models.User{ID: "u3", Name: "C", Email: "c@example.com", Phone: "+100", PasswordHash: "x"}
	if err := CreateUser(dup2); err != ErrUserExists {
		t.Fatalf("duplicate phone accepted: %v", err)
	}

	byEmail, err := FindUserByIdentifier("a@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Fatalf("find by email: %v %+v", err, byEmail)
	}
	byPhone, err := FindUserByIdentifier("+100")
	if err != nil || byPhone.ID != "u1" {
		t.Fatalf("find by phone: %v %+v", err, byPhone)
	}
}

func TestDeleteThread(t *testing.T) {
	openTest(t)

	th, _ := FindOrCreateThread("a", "b")
	if err := DeleteThread(th.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetThread(th.ID); err != ErrNotFound {
		t.Fatalf("thread meta survived delete: %v", err)
	}
	// pair index gone too: next contact makes a fresh thread
	fresh, _ := FindOrCreateThread("a", "b")
	if fresh.ID == th.ID {
		t.Fatalf("pair index survived delete")
	}
}
