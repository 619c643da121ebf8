package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pulsechat/pkg/auth"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/utils"
)

const (
	// EventUserStatus is broadcast to every live handle whenever a user
	// flips online or offline.
	EventUserStatus = "user_status"

	pongWait         = 60 * time.Second
	defaultReadLimit = 1 << 16
)

// StatusEvent is the payload of user_status.
type StatusEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// Actions is what the gate needs from the messaging core to handle
// client-originated frames. *messaging.Service satisfies it.
type Actions interface {
	Typing(userID, threadID, receiverID string)
	StopTyping(userID, threadID, receiverID string)
	RelayRead(readerID, messageID, threadID, senderID string)
	ReleaseTyping(userID string)
}

// Options tunes the gate; zero values pick sane defaults.
type Options struct {
	SendBuffer int
	ReadLimit  int64
	// CheckOrigin overrides the upgrader's origin check. nil allows all
	// origins; browser clients are gated by the bearer token anyway.
	CheckOrigin func(r *http.Request) bool
}

// Hub owns the websocket endpoint: it authenticates the handshake,
// registers handles, pumps client frames into the messaging core and
// broadcasts presence flips.
type Hub struct {
	reg     *Registry
	router  *Router
	actions Actions

	upgrader   websocket.Upgrader
	sendBuffer int
	readLimit  int64

	// swapped out in tests
	verify func(token string) (string, error)
}

func NewHub(opts Options) *Hub {
	readLimit := opts.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	h := &Hub{
		reg: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		sendBuffer: opts.SendBuffer,
		readLimit:  readLimit,
		verify:     auth.VerifyToken,
	}
	h.router = NewRouter(h.reg)
	h.reg.OnTransition(func(userID string, online bool) {
		status := "online"
		if !online {
			status = "offline"
		}
		logger.Info("user_status_changed", "user", userID, "status", status)
		h.router.DeliverAll(EventUserStatus, StatusEvent{UserID: userID, Status: status})
	})
	return h
}

// Router returns the hub's fan-out router for use as the messaging
// core's deliverer.
func (h *Hub) Router() *Router { return h.router }

// Bind installs the messaging actions. The hub and the messaging core
// reference each other, so the hub is built first and bound after the
// core exists. Must be called before ServeWS accepts connections.
func (h *Hub) Bind(a Actions) { h.actions = a }

// Registry exposes presence queries.
func (h *Hub) Registry() *Registry { return h.reg }

// Online returns the sorted IDs of all currently online users.
func (h *Hub) Online() []string { return h.reg.Users() }

// Shutdown closes every live handle.
func (h *Hub) Shutdown() { h.reg.CloseAll() }

// clientFrame is what clients send over the socket.
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type typingFrame struct {
	ThreadID   string `json:"threadId"`
	ReceiverID string `json:"receiverId"`
}

type readFrame struct {
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId"`
	SenderID  string `json:"senderId"`
}

// ServeWS authenticates and upgrades a websocket handshake. The token
// comes from the `token` query parameter or the Authorization header.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	userID, err := h.verify(token)
	if err != nil {
		logger.Warn("ws_auth_failed", "remote", r.RemoteAddr, "error", err)
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logger.Warn("ws_upgrade_failed", "user", userID, "error", err)
		return
	}

	c := newConn(utils.GenConnID(), userID, ws, h.sendBuffer)
	go c.writeLoop()
	h.reg.Register(c)
	logger.Info("ws_connected", "user", userID, "conn", c.ID)

	h.readLoop(c, ws)

	h.reg.Unregister(c)
	c.Close()
	if !h.reg.IsOnline(userID) {
		h.actions.ReleaseTyping(userID)
	}
	logger.Info("ws_disconnected", "user", userID, "conn", c.ID)
}

func (h *Hub) readLoop(c *Conn, ws *websocket.Conn) {
	ws.SetReadLimit(h.readLimit)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws_read_error", "user", c.UserID, "conn", c.ID, "error", err)
			}
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Debug("ws_bad_frame", "user", c.UserID, "error", err)
			continue
		}
		h.dispatch(c.UserID, frame)
	}
}

// dispatch routes one client frame. Unknown events are ignored so old
// clients cannot wedge a connection.
func (h *Hub) dispatch(userID string, frame clientFrame) {
	switch frame.Event {
	case "typing":
		var t typingFrame
		if json.Unmarshal(frame.Data, &t) != nil || t.ThreadID == "" || t.ReceiverID == "" {
			return
		}
		h.actions.Typing(userID, t.ThreadID, t.ReceiverID)
	case "stopTyping":
		var t typingFrame
		if json.Unmarshal(frame.Data, &t) != nil || t.ThreadID == "" || t.ReceiverID == "" {
			return
		}
		h.actions.StopTyping(userID, t.ThreadID, t.ReceiverID)
	case "message_read":
		var rd readFrame
		if json.Unmarshal(frame.Data, &rd) != nil || rd.MessageID == "" || rd.SenderID == "" {
			return
		}
		h.actions.RelayRead(userID, rd.MessageID, rd.ThreadID, rd.SenderID)
	default:
		logger.Debug("ws_unknown_event", "user", userID, "event", frame.Event)
	}
}
