package messaging

import (
	"time"

	"pulsechat/pkg/logger"
	"pulsechat/pkg/models"
	"pulsechat/pkg/store"
	"pulsechat/pkg/telemetry"
	"pulsechat/pkg/utils"
	"pulsechat/pkg/validation"
)

// Event types produced by the messaging core. The field sets of the
// payload structs below are the full wire contract.
const (
	EventNewMessage      = "new_message"
	EventMessageRead     = "message_read"
	EventMessageReaction = "message_reaction"
	EventTyping          = "typing"
	EventStopTyping      = "stopTyping"
)

// TypingEvent is the payload of typing / stopTyping.
type TypingEvent struct {
	ThreadID string `json:"threadId"`
	UserID   string `json:"userId"`
}

// ReadEvent is the payload of message_read, sent to the message's
// sender only.
type ReadEvent struct {
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId"`
	ReadBy    string `json:"readBy"`
	ReadAt    int64  `json:"readAt"`
}

// ReactionEvent is the payload of message_reaction and carries the full
// current reaction list.
type ReactionEvent struct {
	MessageID string            `json:"messageId"`
	Reactions []models.Reaction `json:"reactions"`
}

// Deliverer fans an event out to the live handles of a user (or all
// users). Implemented by realtime.Router; delivery is best-effort and
// per-handle failures never propagate back here.
type Deliverer interface {
	Deliver(userID, event string, payload any)
	DeliverAll(event string, payload any)
}

// Service orchestrates send, read-receipt, typing and reaction flows:
// validate input, mutate the store, then ask the Deliverer to fan out
// the resulting event. Mutate-then-deliver, never the reverse.
type Service struct {
	deliver Deliverer
	typing  *typingTracker
}

// NewService builds the messaging core. typingTTL <= 0 uses
// DefaultTypingTTL.
func NewService(d Deliverer, typingTTL time.Duration) *Service {
	s := &Service{deliver: d}
	s.typing = newTypingTracker(typingTTL, func(threadID, userID, receiverID string) {
		logger.Debug("typing_expired", "thread", threadID, "user", userID)
		d.Deliver(receiverID, EventStopTyping, TypingEvent{ThreadID: threadID, UserID: userID})
	})
	return s
}

// Send validates and persists a message for {sender, receiver}, creating
// the thread on first contact, and notifies both participants' live
// handles (the sender too, so their other devices stay in sync).
func (s *Service) Send(senderID, receiverID, text string) (models.Message, error) {
	if receiverID == "" {
		return models.Message{}, validationErrorf("receiver required")
	}
	if receiverID == senderID {
		return models.Message{}, validationErrorf("cannot message yourself")
	}
	if err := validation.ValidateMessageText(text); err != nil {
		return models.Message{}, &ValidationError{Msg: err.Error()}
	}

	thread, err := store.FindOrCreateThread(senderID, receiverID)
	if err != nil {
		return models.Message{}, &PersistenceError{Err: err}
	}
	m := models.Message{
		ID:       utils.GenMessageID(),
		Thread:   thread.ID,
		Sender:   senderID,
		Receiver: receiverID,
		Text:     text,
	}
	if err := store.SaveMessage(&m); err != nil {
		return models.Message{}, &PersistenceError{Err: err}
	}
	if err := store.UpdateThreadLastMessage(thread.ID, text, m.CreatedTS); err != nil {
		return models.Message{}, &PersistenceError{Err: err}
	}
	// sending a message implicitly ends the sender's typing state
	if s.typing.stop(thread.ID, senderID) {
		s.deliver.Deliver(receiverID, EventStopTyping, TypingEvent{ThreadID: thread.ID, UserID: senderID})
	}
	telemetry.MessagesSent.Inc()
	s.deliver.Deliver(senderID, EventNewMessage, m)
	s.deliver.Deliver(receiverID, EventNewMessage, m)
	return m, nil
}

// MarkRead appends a read receipt for readerID to each message that the
// reader has not read yet and did not send, and notifies each affected
// message's sender. Idempotent per (message, reader). Messages that do
// not exist are skipped; the first missing ID is reported after the
// rest of the batch has been processed.
func (s *Service) MarkRead(readerID string, messageIDs []string) (int, error) {
	marked := 0
	var missing *NotFoundError
	for _, id := range messageIDs {
		before := false
		m, err := store.UpdateMessage(id, func(m *models.Message) error {
			before = m.ReadBySet(readerID) || m.Sender == readerID
			if before {
				return nil
			}
			m.ReadBy = append(m.ReadBy, models.ReadReceipt{
				User:   readerID,
				ReadAt: time.Now().UTC().UnixNano(),
			})
			return nil
		})
		if err == store.ErrNotFound {
			if missing == nil {
				missing = &NotFoundError{Resource: "message", ID: id}
			}
			continue
		}
		if err != nil {
			return marked, &PersistenceError{Err: err}
		}
		if before {
			continue
		}
		marked++
		telemetry.ReadReceipts.Inc()
		last := m.ReadBy[len(m.ReadBy)-1]
		s.deliver.Deliver(m.Sender, EventMessageRead, ReadEvent{
			MessageID: m.ID,
			ThreadID:  m.Thread,
			ReadBy:    readerID,
			ReadAt:    last.ReadAt,
		})
	}
	if missing != nil {
		return marked, missing
	}
	return marked, nil
}

// Typing records transient typing state and relays the indicator to the
// receiver's live handles. The state expires on its own after the TTL.
func (s *Service) Typing(userID, threadID, receiverID string) {
	s.typing.start(threadID, userID, receiverID)
	s.deliver.Deliver(receiverID, EventTyping, TypingEvent{ThreadID: threadID, UserID: userID})
}

// StopTyping clears typing state and relays the stop to the receiver.
func (s *Service) StopTyping(userID, threadID, receiverID string) {
	s.typing.stop(threadID, userID)
	s.deliver.Deliver(receiverID, EventStopTyping, TypingEvent{ThreadID: threadID, UserID: userID})
}

// ReleaseTyping drops all typing state owned by userID (connection
// gone) and relays stopTyping to each affected receiver.
func (s *Service) ReleaseTyping(userID string) {
	for _, pair := range s.typing.stopAllFor(userID) {
		s.deliver.Deliver(pair[1], EventStopTyping, TypingEvent{ThreadID: pair[0], UserID: userID})
	}
}

// RelayRead forwards a read receipt raised over a live connection to the
// original sender's handles. This is a pure relay: the reader identity
// comes from the authenticated connection and is trusted for this path.
func (s *Service) RelayRead(readerID, messageID, threadID, senderID string) {
	s.deliver.Deliver(senderID, EventMessageRead, ReadEvent{
		MessageID: messageID,
		ThreadID:  threadID,
		ReadBy:    readerID,
		ReadAt:    time.Now().UTC().UnixNano(),
	})
}

// ToggleReaction applies the per-user toggle rule to the message's
// reaction list under the store's per-message lock and notifies both
// participants with the full current list.
func (s *Service) ToggleReaction(userID, messageID, emoji string) (models.Message, error) {
	if err := validation.ValidateEmoji(emoji); err != nil {
		return models.Message{}, &ValidationError{Msg: err.Error()}
	}
	m, err := store.UpdateMessage(messageID, func(m *models.Message) error {
		m.Reactions = models.ToggleReaction(m.Reactions, userID, emoji)
		return nil
	})
	if err == store.ErrNotFound {
		return models.Message{}, &NotFoundError{Resource: "message", ID: messageID}
	}
	if err != nil {
		return models.Message{}, &PersistenceError{Err: err}
	}
	telemetry.ReactionToggles.Inc()
	reactions := m.Reactions
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	ev := ReactionEvent{MessageID: m.ID, Reactions: reactions}
	s.deliver.Deliver(m.Sender, EventMessageReaction, ev)
	s.deliver.Deliver(m.Receiver, EventMessageReaction, ev)
	return m, nil
}

// ClearThread wipes all messages of a thread for the requesting side.
// The other participant is deliberately not notified live; their next
// history load reflects the clear.
func (s *Service) ClearThread(requesterID, threadID string) error {
	t, err := store.GetThread(threadID)
	if err == store.ErrNotFound {
		return &NotFoundError{Resource: "thread", ID: threadID}
	}
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if !t.HasParticipant(requesterID) {
		return &NotFoundError{Resource: "thread", ID: threadID}
	}
	if err := store.ClearThread(threadID); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}

// Threads returns the requester's threads, newest activity first.
func (s *Service) Threads(userID string) ([]models.Thread, error) {
	out, err := store.ListThreadsFor(userID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return out, nil
}

// History returns a page of a thread's messages in creation order. The
// requester must be a participant; outsiders see the thread as missing.
func (s *Service) History(requesterID, threadID string, page, limit int) ([]models.Message, error) {
	t, err := store.GetThread(threadID)
	if err == store.ErrNotFound {
		return nil, &NotFoundError{Resource: "thread", ID: threadID}
	}
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if !t.HasParticipant(requesterID) {
		return nil, &NotFoundError{Resource: "thread", ID: threadID}
	}
	msgs, err := store.ListMessages(threadID, page, limit)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return msgs, nil
}
