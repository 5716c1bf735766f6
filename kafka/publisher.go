package kafka

import (
	"context"
	"io"

	"github.com/Shopify/sarama"
	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
)

// Publisher writes hits onto a Kafka topic as feed rows, keyed by visitor
// key so a visitor's hits stay in one partition.
type Publisher struct {
	Topic     string
	BatchSize int
	Log       searchrev.Logger

	producer sarama.SyncProducer
}

// NewPublisher returns a Publisher sending through producer.
func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{
		Topic:     topic,
		BatchSize: 500,
		Log:       searchrev.NopLogger{},
		producer:  producer,
	}
}

// NewSyncProducer connects a producer to hosts the way Publisher expects.
func NewSyncProducer(hosts []string) (sarama.SyncProducer, error) {
	conf := sarama.NewConfig()
	conf.Version = sarama.V0_10_0_0
	conf.Producer.Return.Successes = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	producer, err := sarama.NewSyncProducer(hosts, conf)
	return producer, errors.Wrap(err, "getting new producer")
}

// Message builds the message for hit.
func (p *Publisher) Message(hit searchrev.HitRecord) *sarama.ProducerMessage {
	return &sarama.ProducerMessage{
		Topic: p.Topic,
		Key:   sarama.StringEncoder(hit.VisitorKey),
		Value: sarama.StringEncoder(searchrev.FormatRow(hit)),
	}
}

// Publish sends every hit from src and returns how many were sent. Messages
// go out in batches of BatchSize.
func (p *Publisher) Publish(ctx context.Context, src searchrev.Source) (int, error) {
	size := p.BatchSize
	if size < 1 {
		size = 1
	}
	batch := make([]*sarama.ProducerMessage, 0, size)
	sent := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.producer.SendMessages(batch); err != nil {
			return errors.Wrapf(err, "sending batch after %d messages", sent)
		}
		sent += len(batch)
		p.Log.Debugf("sent %d messages to %s", sent, p.Topic)
		batch = batch[:0]
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		hit, err := src.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			return sent, errors.Wrap(err, "reading hit")
		}
		batch = append(batch, p.Message(hit))
		if len(batch) == size {
			if err := flush(); err != nil {
				return sent, err
			}
		}
	}
	if err := flush(); err != nil {
		return sent, err
	}
	p.Log.Printf("published %d hits to %s", sent, p.Topic)
	return sent, nil
}
