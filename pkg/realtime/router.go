package realtime

import (
	"encoding/json"

	"pulsechat/pkg/logger"
	"pulsechat/pkg/telemetry"
)

// envelope is the wire frame for every server-to-client event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Router fans events out to live handles. Payloads are marshalled once
// per event, and a handle that cannot take the frame is dropped without
// affecting delivery to any other handle.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// Deliver sends the event to every live handle of userID. A user with
// no handles is a no-op, not an error.
func (r *Router) Deliver(userID, event string, payload any) {
	handles := r.reg.HandlesFor(userID)
	if len(handles) == 0 {
		return
	}
	frame, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		logger.Error("event_marshal_failed", "event", event, "error", err)
		telemetry.EventsDropped.WithLabelValues("marshal").Inc()
		return
	}
	for _, h := range handles {
		r.push(h, event, frame)
	}
}

// DeliverAll broadcasts the event to every live handle of every user.
func (r *Router) DeliverAll(event string, payload any) {
	handles := r.reg.All()
	if len(handles) == 0 {
		return
	}
	frame, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		logger.Error("event_marshal_failed", "event", event, "error", err)
		telemetry.EventsDropped.WithLabelValues("marshal").Inc()
		return
	}
	for _, h := range handles {
		r.push(h, event, frame)
	}
}

// push enqueues one frame on one handle. A handle whose buffer is full
// is too far behind to be useful and gets closed; the gate's read loop
// unregisters it.
func (r *Router) push(h *Conn, event string, frame []byte) {
	if h.enqueue(frame) {
		telemetry.EventsDelivered.WithLabelValues(event).Inc()
		return
	}
	logger.Warn("event_dropped", "event", event, "user", h.UserID, "conn", h.ID)
	telemetry.EventsDropped.WithLabelValues("slow_client").Inc()
	h.Close()
}
