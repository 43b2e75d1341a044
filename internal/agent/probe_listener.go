package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	probeReplyOK       = "rmf-simulator:ok\n"
	probeReplyStarting = "rmf-simulator:starting\n"
)

func (a *Agent) runProbeListener(ctx context.Context) error {
	addr := strings.TrimSpace(a.cfg.ProbeListenAddr)
	if addr == "" {
		return fmt.Errorf("empty probe listen address")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen probe endpoint %s: %w", addr, err)
	}
	a.logger.Info("probe endpoint listening", "addr", ln.Addr().String())
	return a.serveProbe(ctx, ln)
}

// serveProbe answers every connection with one status line and closes it.
// The reply only says the process is up; /healthz carries the detail.
func (a *Agent) serveProbe(ctx context.Context, ln net.Listener) error {
	defer func() { _ = ln.Close() }()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil || errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			a.logger.Debug("probe accept failed", "error", acceptErr)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		reply := probeReplyStarting
		if a.health.running.Load() {
			reply = probeReplyOK
		}
		_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
		_, _ = conn.Write([]byte(reply))
		_ = conn.Close()
	}
}
