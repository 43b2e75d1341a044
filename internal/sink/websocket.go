package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"rmf-simulator/internal/model"
)

type WebSocketSink struct {
	mu sync.Mutex

	logger       *slog.Logger
	url          string
	token        string
	tlsConfig    *tls.Config
	writeTimeout time.Duration
	pingInterval time.Duration
	conn         *websocket.Conn
	pingCancel   context.CancelFunc
}

func NewWebSocketSink(url, token string, tlsCfg *tls.Config, writeTimeout, pingInterval time.Duration, logger *slog.Logger) *WebSocketSink {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 10 * time.Second
	}
	return &WebSocketSink{
		logger:       logger,
		url:          url,
		token:        token,
		tlsConfig:    tlsCfg,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

func (c *WebSocketSink) Name() string {
	return "websocket"
}

func (c *WebSocketSink) Write(ctx context.Context, batch model.MetricBatch) error {
	payload, err := EncodeEnvelope(NewBatchEnvelope(batch))
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := c.conn.Write(wctx, websocket.MessageText, payload); err != nil {
		c.logger.Warn("websocket write failed, reconnecting", "error", err)
		c.dropConnLocked(websocket.StatusInternalError, "reconnect")
		if err2 := c.ensureConnLocked(ctx); err2 != nil {
			return err2
		}
		if err2 := c.conn.Write(wctx, websocket.MessageText, payload); err2 != nil {
			return fmt.Errorf("write envelope retry: %w", err2)
		}
	}
	return nil
}

func (c *WebSocketSink) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.dropConnLocked(websocket.StatusNormalClosure, "shutdown")
}

func (c *WebSocketSink) dropConnLocked(code websocket.StatusCode, reason string) error {
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	err := c.conn.Close(code, reason)
	c.conn = nil
	return err
}

func (c *WebSocketSink) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	opt := &websocket.DialOptions{HTTPHeader: h}
	if c.tlsConfig != nil {
		opt.HTTPClient = &http.Client{Transport: &http.Transport{TLSClientConfig: c.tlsConfig}}
	}
	conn, _, err := websocket.Dial(ctx, c.url, opt)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.url, err)
	}
	conn.SetReadLimit(10 << 20)
	// The stream is write only; CloseRead handles control frames so pings get their pongs.
	conn.CloseRead(context.Background())
	c.conn = conn
	c.startPingLoopLocked()
	c.logger.Info("websocket stream connected", "url", c.url)
	return nil
}

func (c *WebSocketSink) startPingLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	c.pingCancel = cancel
	go func(conn *websocket.Conn, interval time.Duration) {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
				_ = conn.Ping(pingCtx)
				pingCancel()
			}
		}
	}(c.conn, c.pingInterval)
}
