package sink

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"rmf-simulator/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// GRPCSink streams every batch as one JSON frame over a long lived client stream.
type GRPCSink struct {
	mu sync.Mutex

	logger      *slog.Logger
	addr        string
	tlsConfig   *tls.Config
	token       string
	method      string
	dialTimeout time.Duration
	dialOpts    []grpc.DialOption

	conn         *grpc.ClientConn
	stream       grpc.ClientStream
	streamCancel context.CancelFunc
}

func NewGRPCSink(addr string, tlsCfg *tls.Config, token, method string, logger *slog.Logger) *GRPCSink {
	return &GRPCSink{
		logger:      logger,
		addr:        addr,
		tlsConfig:   tlsCfg,
		token:       token,
		method:      method,
		dialTimeout: 8 * time.Second,
	}
}

func (c *GRPCSink) Name() string {
	return "grpc"
}

func (c *GRPCSink) Write(ctx context.Context, batch model.MetricBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	frame := NewBatchFrame(batch)
	err := c.sendLocked(ctx, frame)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("send batch frame: %w", err)
	}
	c.logger.Warn("grpc batch send failed, reopening stream", "error", err)
	if err := c.sendLocked(ctx, frame); err != nil {
		return fmt.Errorf("send batch frame: %w", err)
	}
	return nil
}

// sendLocked sends one frame on the current stream, opening it when needed.
// SendMsg ignores ctx, so the stream is torn down when ctx ends first; that
// unblocks the pending send and the next write opens a fresh stream.
func (c *GRPCSink) sendLocked(ctx context.Context, frame BatchFrame) error {
	if c.stream == nil {
		if err := c.openStreamLocked(); err != nil {
			return err
		}
	}
	s := c.stream
	done := make(chan error, 1)
	go func() {
		done <- s.SendMsg(frame)
	}()
	select {
	case err := <-done:
		if err != nil {
			c.resetStreamLocked()
		}
		return err
	case <-ctx.Done():
		c.resetStreamLocked()
		return ctx.Err()
	}
}

// Close half-closes the stream and waits for the server to finish it, bounded by ctx.
func (c *GRPCSink) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.stream; s != nil {
		if err := s.CloseSend(); err == nil {
			done := make(chan struct{})
			go func() {
				var ack map[string]any
				_ = s.RecvMsg(&ack)
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				c.logger.Warn("grpc stream close timed out", "error", ctx.Err())
			}
		}
	}
	c.resetStreamLocked()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *GRPCSink) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	}, c.dialOpts...)
	conn, err := grpc.DialContext(dialCtx, c.addr, opts...)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc stream connected", "addr", c.addr)
	return nil
}

// openStreamLocked opens the stream on its own context; a per-write deadline
// would tear the stream down after the first batch.
func (c *GRPCSink) openStreamLocked() error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	if c.token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+c.token)
	}
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.method)
	if err != nil {
		cancel()
		return fmt.Errorf("open batch stream: %w", err)
	}
	c.stream = s
	c.streamCancel = cancel
	return nil
}

func (c *GRPCSink) resetStreamLocked() {
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	c.stream = nil
}
