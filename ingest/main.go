// Package ingest runs the search keyword revenue pipeline once: it reads a
// hit feed, attributes revenue to search keywords, and writes the report to
// every configured sink.
package ingest

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/avro"
	"github.com/ksb256/searchrev/boltdb"
	"github.com/ksb256/searchrev/clickhouse"
	"github.com/ksb256/searchrev/kafka"
	"github.com/ksb256/searchrev/leveldb"
	"github.com/ksb256/searchrev/pilosa"
	"github.com/ksb256/searchrev/store"
	"github.com/ksb256/searchrev/termstat"
	"github.com/pkg/errors"
)

// Main holds the options of the run command.
type Main struct {
	Input  string `help:"Hit feed. A local path, http(s) URL or s3://bucket/key. Leave empty to consume from Kafka."`
	Output string `help:"Directory or s3://bucket/prefix the dated report is written under. Leave empty to skip."`
	Format string `help:"Report object format: tsv or avro."`
	Date   string `help:"Report date as YYYY-MM-DD. Defaults to today."`

	InternalDomains []string `help:"Comma separated domains whose referrals are internal."`
	PurchaseEvent   string   `help:"event_list value which marks a purchase hit."`
	AnyEvent        bool     `help:"Treat a hit as a purchase when any event in its list is the purchase event."`
	SkipMalformed   bool     `help:"Skip purchases with a malformed product list instead of failing."`
	Strict          bool     `help:"Fail on referrers carrying both a q= and a p= keyword."`
	Concurrent      bool     `help:"Extract revenue and referrals concurrently."`

	Translator     string `help:"Key dictionary: memory, leveldb or bolt."`
	TranslatorPath string `help:"Directory (leveldb) or file (bolt) holding the key dictionary."`

	KafkaHosts       []string `help:"Comma separated list of Kafka hosts and ports"`
	KafkaTopics      []string `help:"Comma separated list of Kafka topics"`
	KafkaGroup       string   `help:"Kafka consumer group"`
	KafkaMaxMsgs     int      `help:"Stop consuming after this many messages. 0 for no limit."`
	KafkaIdleSeconds int      `help:"Stop consuming after this many seconds without a message."`

	ClickHouseAddr     []string `help:"Comma separated ClickHouse native addresses. Leave empty to skip."`
	ClickHouseDatabase string   `help:"ClickHouse database"`
	ClickHouseUser     string   `help:"ClickHouse user"`
	ClickHousePassword string   `help:"ClickHouse password"`
	ClickHouseTable    string   `help:"ClickHouse report table"`

	PilosaHosts []string `help:"Comma separated Pilosa hosts. Leave empty to skip."`
	PilosaIndex string   `help:"Pilosa index for report rows."`

	Region  string `help:"AWS region for s3 references."`
	Stats   bool   `help:"Print stage counters to stderr."`
	Verify  bool   `help:"Read the report back after writing it and print it."`
	Verbose bool   `help:"Enable debug logging."`

	out        io.Writer
	log        searchrev.Logger
	openSource func(ctx context.Context) (searchrev.Source, func(), error)
}

// committer is a Source which must be told when its records have been fully
// handled, like the Kafka source.
type committer interface {
	Commit() error
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	ch := clickhouse.DefaultConfig()
	return &Main{
		Format:             "tsv",
		InternalDomains:    searchrev.DefaultInternalDomains,
		PurchaseEvent:      searchrev.PurchaseEvent,
		Translator:         "memory",
		TranslatorPath:     "searchrev-keys",
		KafkaHosts:         []string{"localhost:9092"},
		KafkaTopics:        []string{"hits"},
		KafkaGroup:         "searchrev",
		KafkaIdleSeconds:   10,
		ClickHouseDatabase: ch.Database,
		ClickHouseUser:     ch.Username,
		ClickHouseTable:    ch.Table,
		PilosaIndex:        "searchrev",
		Region:             "us-east-1",

		out: os.Stdout,
	}
}

// SetOutput sets where Verify prints the report.
func (m *Main) SetOutput(w io.Writer) {
	m.out = w
}

// Run runs the pipeline once.
func (m *Main) Run() (err error) {
	if m.log == nil {
		zl, err := searchrev.NewZapLogger(m.Verbose)
		if err != nil {
			return errors.Wrap(err, "getting logger")
		}
		defer func() { _ = zl.Sync() }()
		m.log = zl
	}
	ctx := context.Background()

	date := time.Now()
	if m.Date != "" {
		date, err = time.Parse("2006-01-02", m.Date)
		if err != nil {
			return errors.Wrap(err, "parsing report date")
		}
	}

	enc, err := m.encoder()
	if err != nil {
		return err
	}

	p := searchrev.NewPipeline()
	p.Log = m.log
	p.Concurrent = m.Concurrent
	p.Now = func() time.Time { return date }
	p.Revenue.PurchaseEvent = m.PurchaseEvent
	p.Revenue.AnyEvent = m.AnyEvent
	p.Revenue.SkipMalformed = m.SkipMalformed
	p.Revenue.Log = m.log
	p.Referrers = searchrev.NewReferrerClassifier(m.InternalDomains...)
	p.Keywords.Strict = m.Strict
	if m.Stats {
		stats := termstat.NewCollector(os.Stderr)
		stop := stats.Start(time.Second * 2)
		defer stop()
		p.Stats = stats
		p.Revenue.Stats = stats
	}

	tr, closeTr, err := m.translator()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeTr(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing translator")
		}
	}()
	p.Translator = tr

	openSource := m.openSource
	if openSource == nil {
		openSource = m.source
	}
	src, closeSrc, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer closeSrc()

	res, err := p.Run(ctx, src)
	if err != nil {
		return errors.Wrap(err, "running pipeline")
	}

	sinks, err := m.sinks(ctx, enc)
	if err != nil {
		return err
	}
	for _, s := range sinks {
		if err := s.WriteReport(ctx, &res.Report); err != nil {
			return errors.Wrap(err, "writing report")
		}
	}
	if len(sinks) == 0 {
		m.log.Printf("no sinks configured, printing report")
		if err := searchrev.WriteTSV(m.out, res.Rows); err != nil {
			return err
		}
		return commit(src)
	}

	if m.Verify && m.Output != "" {
		if _, ok := enc.(searchrev.TSVEncoder); !ok {
			return errors.New("verify only supports tsv reports")
		}
		ref := (&searchrev.StoreSink{Prefix: m.Output, Encoder: enc}).Ref(res.Date)
		rows, err := Verify(ctx, ref, m.Region, m.out)
		if err != nil {
			return err
		}
		if rows != len(res.Rows) {
			return errors.Errorf("report %s has %d rows, wrote %d", ref, rows, len(res.Rows))
		}
	}
	return commit(src)
}

// commit acknowledges the source's records once the report is safely written.
func commit(src searchrev.Source) error {
	if c, ok := src.(committer); ok {
		return errors.Wrap(c.Commit(), "committing source")
	}
	return nil
}

func (m *Main) encoder() (searchrev.Encoder, error) {
	switch m.Format {
	case "tsv", "":
		return searchrev.TSVEncoder{}, nil
	case "avro":
		enc, err := avro.NewEncoder()
		return enc, errors.Wrap(err, "getting avro encoder")
	default:
		return nil, errors.Errorf("unknown report format '%s'", m.Format)
	}
}

func (m *Main) translator() (searchrev.Translator, func() error, error) {
	switch m.Translator {
	case "memory", "":
		return searchrev.NewMapTranslator(), func() error { return nil }, nil
	case "leveldb":
		lt, err := leveldb.NewTranslator(m.TranslatorPath, searchrev.VisitorField, searchrev.GroupField)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening leveldb translator")
		}
		return lt, lt.Close, nil
	case "bolt":
		bt, err := boltdb.NewTranslator(m.TranslatorPath, searchrev.VisitorField, searchrev.GroupField)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening bolt translator")
		}
		return bt, bt.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown translator '%s'", m.Translator)
	}
}

func (m *Main) source(ctx context.Context) (searchrev.Source, func(), error) {
	if m.Input == "" {
		ks := kafka.NewSource()
		ks.Hosts = m.KafkaHosts
		ks.Topics = m.KafkaTopics
		ks.Group = m.KafkaGroup
		ks.MaxMsgs = m.KafkaMaxMsgs
		ks.IdleTimeout = time.Duration(m.KafkaIdleSeconds) * time.Second
		ks.Log = m.log
		if err := ks.Open(); err != nil {
			return nil, nil, errors.Wrap(err, "opening kafka source")
		}
		return ks, func() {
			if err := ks.Close(); err != nil {
				m.log.Printf("closing kafka source: %v", err)
			}
		}, nil
	}
	st, name, err := store.Open(m.Input, m.Region)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening input store")
	}
	rc, err := st.Open(ctx, name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", m.Input)
	}
	return searchrev.NewReader(rc), func() { rc.Close() }, nil
}

func (m *Main) sinks(ctx context.Context, enc searchrev.Encoder) ([]searchrev.Sink, error) {
	var sinks []searchrev.Sink
	if m.Output != "" {
		st, prefix, err := store.Open(m.Output, m.Region)
		if err != nil {
			return nil, errors.Wrap(err, "opening output store")
		}
		sinks = append(sinks, &searchrev.StoreSink{Store: st, Prefix: prefix, Encoder: enc, Log: m.log})
	}
	if len(m.ClickHouseAddr) > 0 {
		conf := clickhouse.Config{
			Addr:     m.ClickHouseAddr,
			Database: m.ClickHouseDatabase,
			Username: m.ClickHouseUser,
			Password: m.ClickHousePassword,
			Table:    m.ClickHouseTable,
		}
		cs, err := clickhouse.NewSink(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to clickhouse")
		}
		cs.Log = m.log
		sinks = append(sinks, closingSink{cs, cs.Close})
	}
	if len(m.PilosaHosts) > 0 {
		ps := pilosa.NewSink(m.PilosaHosts, m.PilosaIndex)
		ps.Log = m.log
		sinks = append(sinks, ps)
	}
	return sinks, nil
}

// closingSink releases its connection once the report is written.
type closingSink struct {
	searchrev.Sink
	close func() error
}

func (c closingSink) WriteReport(ctx context.Context, rep *searchrev.Report) error {
	err := c.Sink.WriteReport(ctx, rep)
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}
