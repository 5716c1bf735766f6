package kafka

import (
	"context"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/fake"
	"github.com/ksb256/searchrev/store"
	"github.com/pkg/errors"
)

// Main publishes a hit feed onto a Kafka topic so it can be consumed by the
// run command's kafka source.
type Main struct {
	Input     string   `help:"Hit feed to publish. A local path, http(s) URL or s3://bucket/key."`
	Fake      int      `help:"Publish this many generated hits instead of reading Input."`
	Seed      int      `help:"Random seed for generated hits."`
	Hosts     []string `help:"Comma separated list of Kafka hosts and ports"`
	Topic     string   `help:"Kafka topic to publish to"`
	BatchSize int      `help:"Number of messages sent per request"`
	Region    string   `help:"AWS region for s3 input"`
	Verbose   bool     `help:"Enable debug logging"`
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	return &Main{
		Hosts:     []string{"localhost:9092"},
		Topic:     "hits",
		BatchSize: 500,
		Region:    "us-east-1",
	}
}

// Run publishes the feed.
func (m *Main) Run() error {
	log, err := searchrev.NewZapLogger(m.Verbose)
	if err != nil {
		return errors.Wrap(err, "getting logger")
	}
	defer func() { _ = log.Sync() }()
	ctx := context.Background()
	var src searchrev.Source
	switch {
	case m.Fake > 0:
		src = fake.NewSource(int64(m.Seed), m.Fake)
	case m.Input != "":
		st, name, err := store.Open(m.Input, m.Region)
		if err != nil {
			return errors.Wrap(err, "opening input store")
		}
		rc, err := st.Open(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "opening %s", m.Input)
		}
		defer rc.Close()
		src = searchrev.NewReader(rc)
	default:
		return errors.New("no input feed given")
	}

	producer, err := NewSyncProducer(m.Hosts)
	if err != nil {
		return err
	}
	defer producer.Close()

	pub := NewPublisher(producer, m.Topic)
	pub.BatchSize = m.BatchSize
	pub.Log = log
	_, err = pub.Publish(ctx, src)
	return errors.Wrap(err, "publishing feed")
}
