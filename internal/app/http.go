package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"pulsechat/pkg/api"
	"pulsechat/pkg/auth"
	"pulsechat/pkg/banner"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/store"
	"pulsechat/pkg/telemetry"
)

func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.eff.Addr, a.eff.DBPath, a.eff.Source, verStr)
}

// handler assembles the route tree: app routes plus ops endpoints,
// wrapped in the gateway and telemetry middleware.
func (a *App) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/", api.Handler(api.Deps{
		Svc:      a.svc,
		Hub:      a.hub,
		TokenTTL: a.eff.Config.Security.TokenTTL.Duration(),
	}))

	sec := auth.SecConfig{
		AllowedOrigins: a.eff.Config.Security.CORS.AllowedOrigins,
		RPS:            a.eff.Config.Security.RateLimit.RPS,
		Burst:          a.eff.Config.Security.RateLimit.Burst,
		IPWhitelist:    a.eff.Config.Security.IPWhitelist,
	}
	return telemetry.Middleware(auth.GatewayMiddleware(sec)(mux))
}

// startHTTP starts the listener and returns a channel carrying the
// terminal server error, if any.
func (a *App) startHTTP() <-chan error {
	a.srv = &http.Server{Addr: a.eff.Addr, Handler: a.handler()}
	errCh := make(chan error, 1)
	cert := a.eff.Config.Server.TLS.CertFile
	key := a.eff.Config.Server.TLS.KeyFile
	go func() {
		var err error
		if cert != "" && key != "" {
			logger.Info("server_listening", "addr", a.eff.Addr, "tls", true)
			err = a.srv.ListenAndServeTLS(cert, key)
		} else {
			logger.Info("server_listening", "addr", a.eff.Addr, "tls", false)
			err = a.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready","version":"` + a.version + `"}`))
}
