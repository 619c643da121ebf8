package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"pulsechat/pkg/logger"
	"pulsechat/pkg/models"
)

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp; it also makes per-thread ordering total.
var seq uint64

func messageIDKey(id string) string { return "msg:" + id }

func threadEntryKey(threadID string, ts int64, s uint64) string {
	return fmt.Sprintf("thread:%s:msg:%020d-%06d", threadID, ts, s)
}

// SaveMessage persists a new message under its thread with a sortable
// timestamp key and indexes it by message ID. The assigned CreatedTS and
// Seq are written back into m so the thread entry key stays recomputable.
func SaveMessage(m *models.Message) error {
	if db == nil {
		return notOpen()
	}
	m.CreatedTS = time.Now().UTC().UnixNano()
	m.Seq = atomic.AddUint64(&seq, 1)
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := threadEntryKey(m.Thread, m.CreatedTS, m.Seq)
	batch := db.NewBatch()
	_ = batch.Set([]byte(key), data, nil)
	_ = batch.Set([]byte(messageIDKey(m.ID)), data, nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("save_message_failed", "thread", m.Thread, "key", key, "error", err)
		return err
	}
	logger.Info("message_saved", "thread", m.Thread, "msg_id", m.ID)
	return nil
}

// GetMessage returns the latest state of a message by ID.
func GetMessage(id string) (models.Message, error) {
	var m models.Message
	v, err := get(messageIDKey(id))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(v, &m)
	return m, err
}

// UpdateMessage applies fn to the message's current state and persists
// the result to both the by-ID index and the thread entry. The whole
// read-modify-write runs under a per-message mutex, so concurrent
// receipt/reaction updates on the same message cannot lose writes.
func UpdateMessage(id string, fn func(*models.Message) error) (models.Message, error) {
	if db == nil {
		return models.Message{}, notOpen()
	}
	l := messageLocks.get(id)
	l.Lock()
	defer l.Unlock()

	m, err := GetMessage(id)
	if err != nil {
		return models.Message{}, err
	}
	if err := fn(&m); err != nil {
		return models.Message{}, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	batch := db.NewBatch()
	_ = batch.Set([]byte(messageIDKey(id)), data, nil)
	_ = batch.Set([]byte(threadEntryKey(m.Thread, m.CreatedTS, m.Seq)), data, nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("update_message_failed", "msg_id", id, "error", err)
		return models.Message{}, err
	}
	return m, nil
}

// ListMessages returns messages of a thread in creation order. page is
// 1-based; limit <= 0 means no limit.
func ListMessages(threadID string, page, limit int) ([]models.Message, error) {
	if db == nil {
		return nil, notOpen()
	}
	prefix := []byte("thread:" + threadID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	skip := 0
	if page > 1 && limit > 0 {
		skip = (page - 1) * limit
	}
	out := []models.Message{}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if skip > 0 {
			skip--
			continue
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}
