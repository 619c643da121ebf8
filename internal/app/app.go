// Package app wires configuration, storage, the realtime hub and the
// HTTP server into one runnable unit.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pulsechat/internal/retention"
	"pulsechat/pkg/config"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/messaging"
	"pulsechat/pkg/realtime"
	"pulsechat/pkg/store"
	"pulsechat/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.Effective
	version   string
	commit    string
	buildDate string

	hub *realtime.Hub
	svc *messaging.Service
	srv *http.Server
}

// New validates config, installs runtime state (signing keys,
// validation rules) and opens the store. Call Run to start serving.
func New(eff config.Effective, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(&eff); err != nil {
		return nil, err
	}

	config.SetRuntime(&config.RuntimeConfig{SigningKeys: eff.Config.Security.SigningKeys})
	validation.SetRules(validation.Rules{
		MaxTextLen:  eff.Config.Validation.MaxTextLen,
		MaxNameLen:  eff.Config.Validation.MaxNameLen,
		MaxEmojiLen: eff.Config.Validation.MaxEmojiLen,
	})

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	hub := realtime.NewHub(realtime.Options{
		SendBuffer: eff.Config.Realtime.SendBuffer,
		ReadLimit:  eff.Config.Realtime.ReadLimit,
	})
	svc := messaging.NewService(hub.Router(), eff.Config.Realtime.TypingTTL.Duration())
	hub.Bind(svc)

	return &App{eff: eff, version: version, commit: commit, buildDate: buildDate, hub: hub, svc: svc}, nil
}

// Run starts the retention scheduler and the HTTP server and blocks
// until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	stopRetention, err := retention.Start(ctx, a.eff.Config.Retention)
	if err != nil {
		return err
	}
	defer stopRetention()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	logger.Info("server_stopping")
	a.hub.Shutdown()
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("server_stopped")
}
