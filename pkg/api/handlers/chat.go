package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"pulsechat/pkg/auth"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/messaging"
	"pulsechat/pkg/models"
	"pulsechat/pkg/store"
	"pulsechat/pkg/utils"
)

// PresenceSource is the read-only presence view the chat API exposes.
// *realtime.Hub satisfies it.
type PresenceSource interface {
	Online() []string
}

// Chat is the REST surface over the messaging core.
type Chat struct {
	Svc      *messaging.Service
	Presence PresenceSource
}

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// Send persists a message and fans it out to both participants.
func (h *Chat) Send(w http.ResponseWriter, r *http.Request) {
	senderID := auth.UserIDFromContext(r.Context())
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := h.Svc.Send(senderID, req.ReceiverID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// threadView pairs a thread with the other participant's public
// profile so clients can render the conversation list in one call.
type threadView struct {
	models.Thread
	OtherUser *models.PublicUser `json:"other_user,omitempty"`
}

// Threads lists the caller's conversations, newest activity first.
func (h *Chat) Threads(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	threads, err := h.Svc.Threads(userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]threadView, 0, len(threads))
	for _, t := range threads {
		v := threadView{Thread: t}
		if other := t.OtherParticipant(userID); other != "" {
			if u, err := store.GetUser(other); err == nil {
				p := u.Public()
				v.OtherUser = &p
			}
		}
		out = append(out, v)
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"threads": out})
}

// Messages returns one page of a thread's history in creation order.
func (h *Chat) Messages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	threadID := mux.Vars(r)["threadID"]
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	msgs, err := h.Svc.History(userID, threadID, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"messages": msgs})
}

// Clear wipes a thread's history for the calling side only; the other
// participant gets no live notification.
func (h *Chat) Clear(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	threadID := mux.Vars(r)["threadID"]
	if err := h.Svc.ClearThread(userID, threadID); err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Info("thread_cleared", "thread", threadID, "user", userID)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"cleared": true})
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

// MarkRead appends read receipts for the caller. Already-read and
// self-sent messages are skipped, so retries are harmless.
func (h *Chat) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.MessageIDs) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "messageIds required")
		return
	}
	marked, err := h.Svc.MarkRead(userID, req.MessageIDs)
	if err != nil && !messaging.IsNotFound(err) {
		writeServiceError(w, err)
		return
	}
	// missing IDs are reported but do not fail the batch
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"marked": marked})
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// React toggles the caller's reaction on a message and returns the
// message's new state.
func (h *Chat) React(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	messageID := mux.Vars(r)["messageID"]
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := h.Svc.ToggleReaction(userID, messageID, req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// Online lists the IDs of all currently connected users.
func (h *Chat) Online(w http.ResponseWriter, r *http.Request) {
	users := h.Presence.Online()
	if users == nil {
		users = []string{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string][]string{"users": users})
}
