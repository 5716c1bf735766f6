// Package clickhouse writes reports to a ClickHouse table, one row per
// report row, so daily reports can be queried together. Writing a report
// replaces any earlier report for the same day.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
)

// Config holds the connection settings of a Sink.
type Config struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
}

// DefaultConfig returns settings for a local ClickHouse.
func DefaultConfig() Config {
	return Config{
		Addr:     []string{"localhost:9000"},
		Database: "default",
		Username: "default",
		Table:    "search_keyword_performance",
	}
}

type batch interface {
	Append(v ...interface{}) error
	Send() error
	Abort() error
}

type conn interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	prepare(ctx context.Context, query string) (batch, error)
	Close() error
}

type nativeConn struct {
	clickhouse.Conn
}

func (c nativeConn) prepare(ctx context.Context, query string) (batch, error) {
	return c.Conn.PrepareBatch(ctx, query)
}

// Sink is a searchrev.Sink inserting into ClickHouse over the native
// protocol.
type Sink struct {
	Config
	Log searchrev.Logger

	conn conn
}

// NewSink connects to ClickHouse and checks the connection.
func NewSink(ctx context.Context, conf Config) (*Sink, error) {
	c, err := clickhouse.Open(&clickhouse.Options{
		Addr: conf.Addr,
		Auth: clickhouse.Auth{
			Database: conf.Database,
			Username: conf.Username,
			Password: conf.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening clickhouse connection")
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Ping(pctx); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "pinging clickhouse")
	}
	return &Sink{Config: conf, Log: searchrev.NopLogger{}, conn: nativeConn{c}}, nil
}

// Close closes the connection.
func (s *Sink) Close() error {
	return errors.Wrap(s.conn.Close(), "closing clickhouse connection")
}

func (s *Sink) createTable() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		run_date Date,
		run_id String,
		search_engine_domain String,
		search_keyword String,
		revenue Decimal(18, %d)
	) ENGINE = MergeTree ORDER BY (run_date, search_engine_domain, search_keyword)`, s.Table, searchrev.RevenuePlaces)
}

func (s *Sink) deleteDay() string {
	return fmt.Sprintf("ALTER TABLE %s DELETE WHERE run_date = ?", s.Table)
}

func (s *Sink) insert() string {
	return fmt.Sprintf("INSERT INTO %s (run_date, run_id, search_engine_domain, search_keyword, revenue)", s.Table)
}

// WriteReport implements searchrev.Sink. The table is created if it doesn't
// exist, rows of an earlier report for the same day are deleted, and all rows
// of the report go in one batch.
func (s *Sink) WriteReport(ctx context.Context, rep *searchrev.Report) error {
	if err := s.conn.Exec(ctx, s.createTable()); err != nil {
		return errors.Wrapf(err, "creating table %s", s.Table)
	}
	day := searchrev.ReportDay(rep.Date)
	// wait for the delete mutation so the insert below isn't caught by it
	dctx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{"mutations_sync": 2}))
	if err := s.conn.Exec(dctx, s.deleteDay(), day); err != nil {
		return errors.Wrapf(err, "deleting report rows of %s", day.Format("2006-01-02"))
	}
	if len(rep.Rows) == 0 {
		s.Log.Printf("no report rows for clickhouse")
		return nil
	}
	b, err := s.conn.prepare(ctx, s.insert())
	if err != nil {
		return errors.Wrap(err, "preparing batch insert")
	}
	for _, r := range rep.Rows {
		err := b.Append(day, rep.RunID, r.SearchEngineDomain, r.SearchKeyword, r.Revenue.Round(searchrev.RevenuePlaces))
		if err != nil {
			_ = b.Abort()
			return errors.Wrapf(err, "appending %s/%s", r.SearchEngineDomain, r.SearchKeyword)
		}
	}
	if err := b.Send(); err != nil {
		return errors.Wrap(err, "sending batch")
	}
	s.Log.Printf("inserted %d report rows into clickhouse table %s", len(rep.Rows), s.Table)
	return nil
}
