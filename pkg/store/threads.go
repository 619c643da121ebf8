package store

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"

	"pulsechat/pkg/logger"
	"pulsechat/pkg/models"
	"pulsechat/pkg/utils"
)

// Key layout:
//   thread:<id>:meta                      -> Thread JSON
//   thread:<id>:msg:<%020d ts>-<%06d seq> -> Message JSON (creation order)
//   pair:<a>|<b>                          -> thread id (a < b)

func threadMetaKey(id string) string { return "thread:" + id + ":meta" }

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "pair:" + a + "|" + b
}

func saveThread(t models.Thread) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return set(threadMetaKey(t.ID), b)
}

// GetThread returns the thread metadata for a given thread ID.
func GetThread(id string) (models.Thread, error) {
	var t models.Thread
	v, err := get(threadMetaKey(id))
	if err != nil {
		return t, err
	}
	err = json.Unmarshal(v, &t)
	return t, err
}

// FindThreadByParticipants returns the thread for the unordered pair
// {a, b}, or ErrNotFound.
func FindThreadByParticipants(a, b string) (models.Thread, error) {
	id, err := get(pairKey(a, b))
	if err != nil {
		return models.Thread{}, err
	}
	return GetThread(string(id))
}

// FindOrCreateThread returns the single thread for the pair {a, b},
// creating it when absent. The check-and-create runs under a per-pair
// mutex so two racing first messages cannot create two threads.
func FindOrCreateThread(a, b string) (models.Thread, error) {
	if db == nil {
		return models.Thread{}, notOpen()
	}
	pk := pairKey(a, b)
	l := pairLocks.get(pk)
	l.Lock()
	defer l.Unlock()

	if id, err := get(pk); err == nil {
		return GetThread(string(id))
	} else if err != ErrNotFound {
		return models.Thread{}, err
	}

	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	t := models.Thread{
		ID:           utils.GenThreadID(),
		Participants: []string{lo, hi},
		CreatedTS:    time.Now().UTC().UnixNano(),
	}
	tb, err := json.Marshal(t)
	if err != nil {
		return models.Thread{}, err
	}
	batch := db.NewBatch()
	_ = batch.Set([]byte(threadMetaKey(t.ID)), tb, nil)
	_ = batch.Set([]byte(pk), []byte(t.ID), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("create_thread_failed", "pair", pk, "error", err)
		return models.Thread{}, err
	}
	logger.Info("thread_created", "thread", t.ID)
	return t, nil
}

// UpdateThreadLastMessage sets the denormalized last-message fields.
func UpdateThreadLastMessage(threadID, text string, ts int64) error {
	t, err := GetThread(threadID)
	if err != nil {
		return err
	}
	t.LastMessageText = text
	t.LastMessageTS = ts
	return saveThread(t)
}

// ListThreadsFor returns all threads the user participates in, newest
// activity first.
func ListThreadsFor(userID string) ([]models.Thread, error) {
	if db == nil {
		return nil, notOpen()
	}
	prefix := []byte("thread:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Thread
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !bytes.HasSuffix(iter.Key(), []byte(":meta")) {
			continue
		}
		var t models.Thread
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		if t.HasParticipant(userID) {
			out = append(out, t)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageTS > out[j].LastMessageTS
	})
	return out, nil
}

// ClearThread deletes all messages of the thread, removes their by-ID
// index entries and resets the thread's last-message fields. The thread
// itself survives; ClearedTS marks it for the retention sweeper.
func ClearThread(threadID string) error {
	if db == nil {
		return notOpen()
	}
	t, err := GetThread(threadID)
	if err != nil {
		return err
	}
	prefix := []byte("thread:" + threadID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	batch := db.NewBatch()
	n := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err == nil && m.ID != "" {
			_ = batch.Delete([]byte(messageIDKey(m.ID)), nil)
		}
		_ = batch.Delete(append([]byte(nil), iter.Key()...), nil)
		n++
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		batch.Close()
		return err
	}
	iter.Close()

	t.LastMessageText = ""
	t.LastMessageTS = 0
	t.ClearedTS = time.Now().UTC().UnixNano()
	tb, err := json.Marshal(t)
	if err != nil {
		batch.Close()
		return err
	}
	_ = batch.Set([]byte(threadMetaKey(t.ID)), tb, nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("clear_thread_failed", "thread", threadID, "error", err)
		return err
	}
	logger.Info("thread_cleared", "thread", threadID, "deleted", n)
	return nil
}

// DeleteThread removes the thread metadata and its pair index. Used by
// the retention sweeper for long-cleared threads; messages must already
// be gone.
func DeleteThread(threadID string) error {
	t, err := GetThread(threadID)
	if err != nil {
		return err
	}
	if len(t.Participants) == 2 {
		if err := del(pairKey(t.Participants[0], t.Participants[1])); err != nil {
			return err
		}
	}
	if err := del(threadMetaKey(threadID)); err != nil {
		return err
	}
	logger.Info("thread_deleted", "thread", threadID)
	return nil
}

// ListThreads returns all thread metadata. Used by the retention sweeper.
func ListThreads() ([]models.Thread, error) {
	if db == nil {
		return nil, notOpen()
	}
	prefix := []byte("thread:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Thread
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !bytes.HasSuffix(iter.Key(), []byte(":meta")) {
			continue
		}
		var t models.Thread
		if err := json.Unmarshal(iter.Value(), &t); err == nil {
			out = append(out, t)
		}
	}
	return out, iter.Error()
}
