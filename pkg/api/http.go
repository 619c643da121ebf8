// Package api assembles the REST and websocket endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pulsechat/pkg/api/handlers"
	"pulsechat/pkg/messaging"
	"pulsechat/pkg/realtime"
	"pulsechat/pkg/utils"
)

// Deps carries what the route tree needs.
type Deps struct {
	Svc      *messaging.Service
	Hub      *realtime.Hub
	TokenTTL time.Duration
}

// Handler returns the application route tree. Authentication and
// rate limiting live in the gateway middleware that wraps this handler;
// the routes here assume an identity is already in context for
// everything outside /v1/auth.
func Handler(d Deps) http.Handler {
	authH := &handlers.Auth{TokenTTL: d.TokenTTL}
	usersH := &handlers.Users{}
	chatH := &handlers.Chat{Svc: d.Svc, Presence: d.Hub}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.JSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/auth/register", authH.Register).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", authH.Login).Methods(http.MethodPost)

	v1.HandleFunc("/users/profile", usersH.Profile).Methods(http.MethodGet)
	v1.HandleFunc("/users/profile", usersH.UpdateProfile).Methods(http.MethodPut)
	v1.HandleFunc("/users/search/{phone}", usersH.SearchByPhone).Methods(http.MethodGet)

	v1.HandleFunc("/chat/send", chatH.Send).Methods(http.MethodPost)
	v1.HandleFunc("/chat/threads", chatH.Threads).Methods(http.MethodGet)
	v1.HandleFunc("/chat/messages/{threadID}", chatH.Messages).Methods(http.MethodGet)
	v1.HandleFunc("/chat/clear/{threadID}", chatH.Clear).Methods(http.MethodDelete)
	v1.HandleFunc("/chat/mark-read", chatH.MarkRead).Methods(http.MethodPost)
	v1.HandleFunc("/chat/reaction/{messageID}", chatH.React).Methods(http.MethodPost)
	v1.HandleFunc("/chat/online", chatH.Online).Methods(http.MethodGet)

	// the gate re-authenticates during the handshake
	v1.HandleFunc("/ws", d.Hub.ServeWS).Methods(http.MethodGet)

	return r
}
