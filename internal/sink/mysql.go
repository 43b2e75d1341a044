package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"rmf-simulator/internal/model"
)

const mysqlRowsPerInsert = 500

type MySQLOptions struct {
	Retention     time.Duration
	PurgeInterval time.Duration
	Retry         RetryPolicy
}

// MySQLSink stores one row per sample in a table per metric.
type MySQLSink struct {
	db        *sql.DB
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time

	stopOnce  sync.Once
	stopPurge context.CancelFunc
	purgeDone chan struct{}
}

// OpenMySQL connects, creates missing tables and starts the retention purge loop.
func OpenMySQL(ctx context.Context, dsn string, opts MySQLOptions, logger *slog.Logger) (*MySQLSink, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	target := safeDSN(cfg)
	if err := connectWithRetry(ctx, logger, target, opts.Retry, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("mysql connected", "dsn", target)

	s := NewMySQLSink(db, opts.Retention, logger)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if opts.Retention > 0 && opts.PurgeInterval > 0 {
		s.startPurgeLoop(opts.PurgeInterval)
	}
	return s, nil
}

func NewMySQLSink(db *sql.DB, retention time.Duration, logger *slog.Logger) *MySQLSink {
	return &MySQLSink{db: db, logger: logger, retention: retention, now: time.Now}
}

func (s *MySQLSink) Name() string {
	return "mysql"
}

func (s *MySQLSink) EnsureSchema(ctx context.Context) error {
	for _, def := range model.Catalog {
		if _, err := s.db.ExecContext(ctx, createTableSQL(def)); err != nil {
			return fmt.Errorf("create table %s: %w", def.Table(), err)
		}
	}
	return nil
}

// Write inserts the batch in a single transaction.
func (s *MySQLSink) Write(ctx context.Context, batch model.MetricBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	groups := batch.ByMetric()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, def := range model.Catalog {
		samples := groups[def.Name]
		for start := 0; start < len(samples); start += mysqlRowsPerInsert {
			end := min(start+mysqlRowsPerInsert, len(samples))
			query, args := insertSQL(def, samples[start:end])
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert %s: %w", def.Table(), err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Purge deletes rows older than the retention window and returns the number removed.
func (s *MySQLSink) Purge(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.retention).UTC()
	var total int64
	for _, def := range model.Catalog {
		res, err := s.db.ExecContext(ctx, "DELETE FROM "+def.Table()+" WHERE timestamp < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", def.Table(), err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			total += n
		}
	}
	return total, nil
}

func (s *MySQLSink) Close(context.Context) error {
	s.stopOnce.Do(func() {
		if s.stopPurge != nil {
			s.stopPurge()
			<-s.purgeDone
		}
	})
	return s.db.Close()
}

func (s *MySQLSink) startPurgeLoop(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopPurge = cancel
	s.purgeDone = make(chan struct{})

	go func() {
		defer close(s.purgeDone)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := s.Purge(ctx)
				if err != nil {
					s.logger.Warn("mysql retention purge failed", "error", err)
					continue
				}
				s.logger.Info("mysql retention purge", "rows_deleted", n, "retention", s.retention)
			}
		}
	}()
}

func createTableSQL(def model.MetricDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", def.Table())
	b.WriteString("    id BIGINT AUTO_INCREMENT PRIMARY KEY,\n")
	b.WriteString("    timestamp DATETIME(3) NOT NULL,\n")
	b.WriteString("    sysplex VARCHAR(50) NOT NULL,\n")
	b.WriteString("    lpar VARCHAR(50) NOT NULL,\n")
	for _, l := range def.Labels {
		fmt.Fprintf(&b, "    %s VARCHAR(50) NOT NULL,\n", l)
	}
	fmt.Fprintf(&b, "    %s %s NOT NULL,\n", def.ValueColumn, def.SQLType)
	b.WriteString("    INDEX idx_timestamp (timestamp),\n")
	b.WriteString("    INDEX idx_lpar_timestamp (lpar, timestamp),\n")
	b.WriteString("    INDEX idx_sysplex_timestamp (sysplex, timestamp),\n")
	fmt.Fprintf(&b, "    INDEX idx_labels (%s)\n", strings.Join(def.Labels, ", "))
	b.WriteString(")")
	return b.String()
}

func insertSQL(def model.MetricDef, samples []model.MetricSample) (string, []any) {
	cols := append([]string{"timestamp", "sysplex", "lpar"}, def.Labels...)
	cols = append(cols, def.ValueColumn)
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	rows := make([]string, 0, len(samples))
	args := make([]any, 0, len(samples)*len(cols))
	for _, smp := range samples {
		rows = append(rows, row)
		args = append(args, smp.Timestamp.UTC(), smp.Sysplex, smp.LPAR)
		for _, l := range def.Labels {
			args = append(args, smp.Label(l))
		}
		if def.Integer {
			args = append(args, int64(math.Round(smp.Value)))
		} else {
			args = append(args, smp.Value)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", def.Table(), strings.Join(cols, ", "), strings.Join(rows, ", "))
	return query, args
}

func safeDSN(cfg *mysql.Config) string {
	c := cfg.Clone()
	if c.Passwd != "" {
		c.Passwd = "****"
	}
	return c.FormatDSN()
}
