package sink

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"rmf-simulator/internal/config"
)

// Set is the collection of sinks enabled by configuration. Prometheus is kept
// separately as well because its registry backs the /metrics endpoint.
type Set struct {
	Sinks      []Sink
	Prometheus *PrometheusSink
}

func NewSinksFromConfig(ctx context.Context, cfg config.Config, sysplex string, tlsCfg *tls.Config, logger *slog.Logger) (Set, error) {
	var set Set
	retry := RetryPolicy{
		Attempts:  cfg.ConnectAttempts,
		Wait:      cfg.ConnectRetryWait,
		MaxJitter: cfg.MaxReconnectJitter,
	}

	add := func(s Sink) {
		if cfg.IsBuffered(s.Name()) {
			logger.Info("sink buffered", "sink", s.Name(), "max_samples", cfg.BatchSize, "flush_interval", cfg.FlushInterval.String())
			s = NewBuffered(s, cfg.BatchSize, cfg.FlushInterval)
		}
		set.Sinks = append(set.Sinks, s)
	}
	fail := func(err error) (Set, error) {
		if len(set.Sinks) > 0 {
			_ = NewFanout(set.Sinks, cfg.SinkWriteTimeout, logger).Close(context.WithoutCancel(ctx))
		}
		return Set{}, err
	}

	if cfg.PrometheusEnabled {
		p, err := NewPrometheusSink()
		if err != nil {
			return fail(fmt.Errorf("prometheus sink: %w", err))
		}
		set.Prometheus = p
		add(p)
	}
	if cfg.MySQLEnabled {
		s, err := OpenMySQL(ctx, cfg.MySQLDSN, MySQLOptions{
			Retention:     cfg.MySQLRetention,
			PurgeInterval: cfg.MySQLPurgeInterval,
			Retry:         retry,
		}, logger.With("sink", "mysql"))
		if err != nil {
			return fail(fmt.Errorf("mysql sink: %w", err))
		}
		add(s)
	}
	if cfg.MongoEnabled {
		s, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, MongoOptions{TTL: cfg.MongoTTL, Retry: retry}, logger.With("sink", "mongodb"))
		if err != nil {
			return fail(fmt.Errorf("mongodb sink: %w", err))
		}
		add(s)
	}
	if cfg.S3Enabled {
		s, err := OpenS3(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, logger.With("sink", "s3"))
		if err != nil {
			return fail(fmt.Errorf("s3 sink: %w", err))
		}
		add(s)
	}
	if cfg.OTLPEnabled {
		s, err := OpenOTLP(ctx, OTLPOptions{
			Endpoint: cfg.OTLPEndpoint,
			Insecure: cfg.OTLPInsecure,
			Interval: cfg.OTLPInterval,
		}, sysplex)
		if err != nil {
			return fail(fmt.Errorf("otlp sink: %w", err))
		}
		add(s)
	}
	if cfg.GRPCEnabled {
		add(NewGRPCSink(cfg.GRPCAddr, tlsCfg, cfg.BackendToken, cfg.GRPCMethod, logger.With("sink", "grpc")))
	}
	if cfg.WSEnabled {
		add(NewWebSocketSink(cfg.WSURL, cfg.BackendToken, tlsCfg, cfg.WSWriteTimeout, cfg.WSPingInterval, logger.With("sink", "websocket")))
	}

	if len(set.Sinks) == 0 {
		return Set{}, errors.New("no sinks enabled")
	}
	return set, nil
}
