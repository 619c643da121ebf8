package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server-wide collectors, registered on the default registry and exposed
// at /metrics via promhttp.

var (
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsechat_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsechat_ws_connections_active",
		Help: "Currently registered websocket handles.",
	})

	UsersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsechat_users_online",
		Help: "Users with at least one live handle.",
	})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsechat_events_delivered_total",
		Help: "Events enqueued to live handles, by event type.",
	}, []string{"event"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsechat_events_dropped_total",
		Help: "Events not delivered to a handle, by reason.",
	}, []string{"reason"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsechat_messages_sent_total",
		Help: "Messages accepted by the messaging core.",
	})

	ReadReceipts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsechat_read_receipts_total",
		Help: "Newly recorded read receipts.",
	})

	ReactionToggles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsechat_reaction_toggles_total",
		Help: "Applied reaction toggles.",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request duration and status for every handler.
// Websocket upgrades are skipped: their lifetime is the connection's,
// not the request's.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
