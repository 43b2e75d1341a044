package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"nhooyr.io/websocket"

	"rmf-simulator/internal/model"
)

func TestNewBatchFrame(t *testing.T) {
	b := testBatch("b1", 2)
	f := NewBatchFrame(b)

	assert.Equal(t, "b1", f.BatchID)
	assert.Equal(t, "SYSPLEX01", f.Sysplex)
	assert.Equal(t, b.Tick.Unix(), f.TimestampUnix)
	require.Len(t, f.Samples, 2)
	assert.Equal(t, "cpu_utilization", f.Samples[0].Metric)
	assert.Equal(t, map[string]string{model.LabelCPUType: "general_purpose"}, f.Samples[0].Labels)
	assert.Equal(t, 41.0, f.Samples[1].Value)
}

func TestGRPCSink_StreamsBatches(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	frames := make(chan BatchFrame, 4)
	auth := make(chan string, 1)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				auth <- v[0]
			}
		}
		for {
			var f BatchFrame
			if err := stream.RecvMsg(&f); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			frames <- f
		}
	}))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	s := NewGRPCSink("passthrough:///bufnet", nil, "secret", "/rmf.metrics.v1.MetricsService/StreamBatches", discardLogger())
	s.dialOpts = []grpc.DialOption{grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Write(ctx, testBatch("b1", 2)))
	require.NoError(t, s.Write(ctx, testBatch("b2", 1)))

	for _, want := range []string{"b1", "b2"} {
		select {
		case f := <-frames:
			assert.Equal(t, want, f.BatchID)
		case <-ctx.Done():
			t.Fatalf("frame %s not received", want)
		}
	}
	assert.Equal(t, "Bearer secret", <-auth)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer closeCancel()
	assert.NoError(t, s.Close(closeCtx))
}

func TestWebSocketSink_WritesEnvelope(t *testing.T) {
	msgs := make(chan []byte, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		for {
			_, data, err := c.Read(r.Context())
			if err != nil {
				return
			}
			msgs <- data
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewWebSocketSink(url, "secret", nil, time.Second, time.Minute, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Write(ctx, testBatch("b1", 1)))

	var raw []byte
	select {
	case raw = <-msgs:
	case <-ctx.Done():
		t.Fatal("message not received")
	}

	var env struct {
		Type    string     `json:"type"`
		Sysplex string     `json:"sysplex"`
		Payload BatchFrame `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, string(model.EnvelopeTypeBatch), env.Type)
	assert.Equal(t, "SYSPLEX01", env.Sysplex)
	assert.Equal(t, "b1", env.Payload.BatchID)
	assert.Len(t, env.Payload.Samples, 1)

	_ = s.Close(ctx)
	assert.Nil(t, s.conn)
}

func TestWebSocketSink_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewWebSocketSink("ws"+strings.TrimPrefix(srv.URL, "http"), "", nil, time.Second, time.Minute, discardLogger())
	err := s.Write(context.Background(), testBatch("b1", 1))
	assert.ErrorContains(t, err, "websocket dial")
}

func TestGRPCSink_StalledReceiverBoundedByTimeout(t *testing.T) {
	lis := bufconn.Listen(64 << 10)
	release := make(chan struct{})
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		select {
		case <-release:
		case <-stream.Context().Done():
		}
		return nil
	}))
	go func() { _ = srv.Serve(lis) }()
	defer func() {
		close(release)
		srv.Stop()
	}()

	s := NewGRPCSink("passthrough:///bufnet", nil, "", "/rmf.metrics.v1.MetricsService/StreamBatches", discardLogger())
	s.dialOpts = []grpc.DialOption{grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})}
	f := NewFanout([]Sink{s}, 300*time.Millisecond, discardLogger())

	big := testBatch("big", 5000)
	var timedOut int
	for i := 0; i < 3; i++ {
		start := time.Now()
		res := f.Write(context.Background(), big)
		assert.Less(t, time.Since(start), 2*time.Second, "write %d", i)
		if res["grpc"].Err != nil {
			timedOut++
		}
	}
	assert.Positive(t, timedOut, "a receiver that never reads must eventually stall the stream")

	closeCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	start := time.Now()
	_ = f.Close(closeCtx)
	assert.Less(t, time.Since(start), 2*time.Second)
}
