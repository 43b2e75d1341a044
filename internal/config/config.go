package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	HardcodedVersion = "V0.3"
	retentionDefault = 90 * 24 * time.Hour
)

type Config struct {
	Sysplex           string
	LPARConfigPath    string
	Timezone          string
	Seed              int64
	TickInterval      time.Duration
	HealthInterval    time.Duration
	ShutdownTimeout   time.Duration
	SinkWriteTimeout  time.Duration
	ErrorBackoff      time.Duration
	ProbeListenAddr   string
	MetricsListenAddr string
	Version           string
	LogJSON           bool
	LogLevel          string

	ConnectAttempts    int
	ConnectRetryWait   time.Duration
	MaxReconnectJitter time.Duration

	PrometheusEnabled bool

	MySQLEnabled       bool
	MySQLDSN           string
	MySQLRetention     time.Duration
	MySQLPurgeInterval time.Duration

	MongoEnabled  bool
	MongoURI      string
	MongoDatabase string
	MongoTTL      time.Duration

	S3Enabled   bool
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	BufferedSinks []string
	BatchSize     int
	FlushInterval time.Duration

	OTLPEnabled  bool
	OTLPEndpoint string
	OTLPInsecure bool
	OTLPInterval time.Duration

	GRPCEnabled    bool
	GRPCAddr       string
	GRPCMethod     string
	WSEnabled      bool
	WSURL          string
	WSWriteTimeout time.Duration
	WSPingInterval time.Duration
	BackendToken   string

	TLSEnabled    bool
	TLSSkipVerify bool
	TLSCAPath     string
	TLSCertPath   string
	TLSKeyPath    string
}

// Load reads the RMF_* environment. A value that is set but does not parse is
// an error, never a silent fallback to the default.
func Load() (Config, error) {
	r := &envReader{}
	cfg := Config{
		Sysplex:           env("RMF_SYSPLEX", DefaultSysplex),
		LPARConfigPath:    env("RMF_LPAR_CONFIG", ""),
		Timezone:          env("RMF_TIMEZONE", "Local"),
		Seed:              r.int64("RMF_SEED", 0),
		TickInterval:      r.duration("RMF_TICK_INTERVAL", 15*time.Second),
		HealthInterval:    r.duration("RMF_HEALTH_INTERVAL", 30*time.Second),
		ShutdownTimeout:   r.duration("RMF_SHUTDOWN_TIMEOUT", 20*time.Second),
		SinkWriteTimeout:  r.duration("RMF_SINK_WRITE_TIMEOUT", 10*time.Second),
		ErrorBackoff:      r.duration("RMF_ERROR_BACKOFF", 1500*time.Millisecond),
		ProbeListenAddr:   env("RMF_PROBE_ADDR", "0.0.0.0:7443"),
		MetricsListenAddr: env("RMF_METRICS_ADDR", "0.0.0.0:8000"),
		Version:           HardcodedVersion,
		LogJSON:           r.bool("RMF_LOG_JSON", false),
		LogLevel:          strings.ToLower(env("RMF_LOG_LEVEL", "info")),

		ConnectAttempts:    r.int("RMF_CONNECT_ATTEMPTS", 5),
		ConnectRetryWait:   r.duration("RMF_CONNECT_RETRY_WAIT", 3*time.Second),
		MaxReconnectJitter: r.duration("RMF_RECONNECT_MAX_JITTER", 900*time.Millisecond),

		PrometheusEnabled: r.bool("RMF_PROMETHEUS_ENABLED", true),

		MySQLEnabled:       r.bool("RMF_MYSQL_ENABLED", false),
		MySQLDSN:           env("RMF_MYSQL_DSN", "rmf_user:rmf_password@tcp(localhost:3306)/rmf_monitoring"),
		MySQLRetention:     r.duration("RMF_MYSQL_RETENTION", retentionDefault),
		MySQLPurgeInterval: r.duration("RMF_MYSQL_PURGE_INTERVAL", time.Hour),

		MongoEnabled:  r.bool("RMF_MONGO_ENABLED", false),
		MongoURI:      env("RMF_MONGO_URI", "mongodb://localhost:27017/?authSource=admin"),
		MongoDatabase: env("RMF_MONGO_DATABASE", "rmf_monitoring"),
		MongoTTL:      r.duration("RMF_MONGO_TTL", retentionDefault),

		S3Enabled:   r.bool("RMF_S3_ENABLED", false),
		S3Endpoint:  env("RMF_S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    env("RMF_S3_REGION", "us-east-1"),
		S3AccessKey: env("RMF_S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey: env("RMF_S3_SECRET_KEY", "minioadmin"),
		S3Bucket:    env("RMF_S3_BUCKET", "rmf-metrics"),
		S3UseSSL:    r.bool("RMF_S3_USE_SSL", false),

		BufferedSinks: envList("RMF_BUFFERED_SINKS", []string{"s3"}),
		BatchSize:     r.int("RMF_BATCH_SIZE", 50),
		FlushInterval: r.duration("RMF_FLUSH_INTERVAL", 60*time.Second),

		OTLPEnabled:  r.bool("RMF_OTLP_ENABLED", false),
		OTLPEndpoint: env("RMF_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure: r.bool("RMF_OTLP_INSECURE", true),
		OTLPInterval: r.duration("RMF_OTLP_INTERVAL", 15*time.Second),

		GRPCEnabled:    r.bool("RMF_GRPC_ENABLED", false),
		GRPCAddr:       env("RMF_GRPC_ADDR", "127.0.0.1:3001"),
		GRPCMethod:     env("RMF_GRPC_METHOD", "/rmf.metrics.v1.MetricsService/StreamBatches"),
		WSEnabled:      r.bool("RMF_WS_ENABLED", false),
		WSURL:          env("RMF_WS_URL", "ws://127.0.0.1:3001/ws/metrics"),
		WSWriteTimeout: r.duration("RMF_WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval: r.duration("RMF_WS_PING_INTERVAL", 10*time.Second),
		BackendToken:   env("RMF_BACKEND_TOKEN", ""),

		TLSEnabled:    r.bool("RMF_TLS_ENABLED", false),
		TLSSkipVerify: r.bool("RMF_TLS_SKIP_VERIFY", false),
		TLSCAPath:     env("RMF_TLS_CA_PATH", ""),
		TLSCertPath:   env("RMF_TLS_CERT_PATH", ""),
		TLSKeyPath:    env("RMF_TLS_KEY_PATH", ""),
	}

	if err := r.err(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Sysplex) == "" {
		return errors.New("RMF_SYSPLEX is required")
	}
	if strings.TrimSpace(c.Version) == "" {
		return errors.New("version must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return errors.New("RMF_TICK_INTERVAL must be > 0")
	}
	if c.HealthInterval <= 0 {
		return errors.New("RMF_HEALTH_INTERVAL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("RMF_SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.SinkWriteTimeout <= 0 {
		return errors.New("RMF_SINK_WRITE_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.ProbeListenAddr) == "" {
		return errors.New("RMF_PROBE_ADDR is required")
	}
	if c.PrometheusEnabled && strings.TrimSpace(c.MetricsListenAddr) == "" {
		return errors.New("RMF_METRICS_ADDR is required when prometheus export is enabled")
	}
	if c.ConnectAttempts <= 0 {
		return errors.New("RMF_CONNECT_ATTEMPTS must be > 0")
	}
	if !c.PrometheusEnabled && !c.MySQLEnabled && !c.MongoEnabled && !c.S3Enabled &&
		!c.OTLPEnabled && !c.GRPCEnabled && !c.WSEnabled {
		return errors.New("at least one sink must be enabled")
	}
	if c.MySQLEnabled && c.MySQLDSN == "" {
		return errors.New("RMF_MYSQL_DSN is required when mysql is enabled")
	}
	if c.MongoEnabled {
		if c.MongoURI == "" {
			return errors.New("RMF_MONGO_URI is required when mongodb is enabled")
		}
		if c.MongoDatabase == "" {
			return errors.New("RMF_MONGO_DATABASE is required when mongodb is enabled")
		}
	}
	if c.S3Enabled && (c.S3Bucket == "" || c.S3Endpoint == "") {
		return errors.New("RMF_S3_BUCKET and RMF_S3_ENDPOINT are required when s3 is enabled")
	}
	if len(c.BufferedSinks) > 0 {
		if c.BatchSize <= 0 {
			return fmt.Errorf("RMF_BATCH_SIZE must be > 0, got %d", c.BatchSize)
		}
		if c.FlushInterval <= 0 {
			return errors.New("RMF_FLUSH_INTERVAL must be > 0")
		}
	}
	if c.OTLPEnabled && c.OTLPEndpoint == "" {
		return errors.New("RMF_OTLP_ENDPOINT is required when otlp is enabled")
	}
	if c.GRPCEnabled {
		if c.GRPCAddr == "" {
			return errors.New("RMF_GRPC_ADDR is required when grpc streaming is enabled")
		}
		if strings.TrimSpace(c.GRPCMethod) == "" {
			return errors.New("RMF_GRPC_METHOD is required when grpc streaming is enabled")
		}
	}
	if c.WSEnabled {
		if c.WSURL == "" {
			return errors.New("RMF_WS_URL is required when websocket streaming is enabled")
		}
		if c.WSWriteTimeout <= 0 {
			return errors.New("RMF_WS_WRITE_TIMEOUT must be > 0")
		}
		if c.WSPingInterval <= 0 {
			return errors.New("RMF_WS_PING_INTERVAL must be > 0")
		}
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("RMF_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load mTLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsBuffered reports whether writes to the named sink go through a count/time buffer.
func (c Config) IsBuffered(sinkName string) bool {
	for _, n := range c.BufferedSinks {
		if n == sinkName {
			return true
		}
	}
	return false
}

// envReader parses typed variables and remembers every malformed one.
type envReader struct {
	errs []error
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) fail(key, v string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (r *envReader) int(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, errors.New("not an integer"))
		return fallback
	}
	return i
}

func (r *envReader) int64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(key, v, errors.New("not an integer"))
		return fallback
	}
	return i
}

func (r *envReader) bool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		r.fail(key, v, errors.New("not a boolean"))
		return fallback
	}
}

// duration requires a unit; "15" is rejected rather than guessed as seconds.
func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return d
}
