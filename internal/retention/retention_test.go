package retention

import (
	"testing"
	"time"

	"pulsechat/pkg/config"
	"pulsechat/pkg/models"
	"pulsechat/pkg/store"
)

func openTest(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func clearedThread(t *testing.T, a, b string) models.Thread {
	t.Helper()
	th, err := store.FindOrCreateThread(a, b)
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	m := models.Message{ID: "m-" + th.ID, Thread: th.ID, Sender: a, Receiver: b, Text: "x"}
	_ = store.SaveMessage(&m)
	if err := store.ClearThread(th.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	return th
}

func TestRunOnce_DeletesLongClearedThreads(t *testing.T) {
	openTest(t)

	old := clearedThread(t, "a", "b")
	kept, _ := store.FindOrCreateThread("a", "c") // never cleared

	time.Sleep(5 * time.Millisecond)
	cfg := config.Retention{Enabled: true, MinAge: config.Duration(time.Millisecond)}
	deleted, err := RunOnce(cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := store.GetThread(old.ID); err != store.ErrNotFound {
		t.Fatalf("cleared thread survived: %v", err)
	}
	if _, err := store.GetThread(kept.ID); err != nil {
		t.Fatalf("live thread deleted: %v", err)
	}
}

func TestRunOnce_RevivedThreadIsKept(t *testing.T) {
	openTest(t)

	th := clearedThread(t, "a", "b")
	// new message after the clear revives the thread
	m := models.Message{ID: "m2", Thread: th.ID, Sender: "b", Receiver: "a", Text: "back"}
	_ = store.SaveMessage(&m)
	_ = store.UpdateThreadLastMessage(th.ID, m.Text, m.CreatedTS)

	time.Sleep(5 * time.Millisecond)
	deleted, err := RunOnce(config.Retention{Enabled: true, MinAge: config.Duration(time.Millisecond)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("revived thread deleted")
	}
}

func TestRunOnce_DryRun(t *testing.T) {
	openTest(t)

	th := clearedThread(t, "a", "b")
	time.Sleep(5 * time.Millisecond)
	deleted, err := RunOnce(config.Retention{Enabled: true, MinAge: config.Duration(time.Millisecond), DryRun: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("dry run deleted %d threads", deleted)
	}
	if _, err := store.GetThread(th.ID); err != nil {
		t.Fatalf("dry run removed data: %v", err)
	}
}

func TestRunOnce_RespectsMinAge(t *testing.T) {
	openTest(t)

	clearedThread(t, "a", "b")
	deleted, err := RunOnce(config.Retention{Enabled: true, MinAge: config.Duration(time.Hour)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("fresh clear deleted")
	}
}

func TestStart_InvalidCron(t *testing.T) {
	if _, err := Start(t.Context(), config.Retention{Enabled: true, Cron: "not a cron"}); err == nil {
		t.Fatalf("invalid cron accepted")
	}
}
