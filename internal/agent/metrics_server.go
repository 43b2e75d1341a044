package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"rmf-simulator/internal/agent/version"
)

func (a *Agent) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		p := a.prometheus.Load()
		if p == nil {
			http.Error(w, "prometheus export disabled", http.StatusNotFound)
			return
		}
		p.Handler().ServeHTTP(w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		status := http.StatusOK
		if !a.health.Healthy(time.Now(), a.staleAfter()) {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(a.health.Snapshot())
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		var sinks []string
		if f := a.fanout.Load(); f != nil {
			sinks = f.Names()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(version.Get(a.cfg, a.registry.Sysplex(), a.registry.Names(), sinks, a.seed.Load()))
	})
	mux.HandleFunc("/system-info", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.systemInfo(time.Now()))
	})
	return mux
}

func (a *Agent) runMetricsServer(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.MetricsListenAddr)
	if err != nil {
		return fmt.Errorf("listen metrics endpoint %s: %w", a.cfg.MetricsListenAddr, err)
	}
	srv := &http.Server{
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.logger.Info("metrics endpoint listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics endpoint: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
		return nil
	}
}
