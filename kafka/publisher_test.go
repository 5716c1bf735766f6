package kafka

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/test"
	"github.com/pkg/errors"
)

type batchProducer struct {
	batches [][]*sarama.ProducerMessage
	fail    bool
}

func (b *batchProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	return 0, 0, b.SendMessages([]*sarama.ProducerMessage{msg})
}

func (b *batchProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	if b.fail {
		return errors.New("broker down")
	}
	b.batches = append(b.batches, append([]*sarama.ProducerMessage(nil), msgs...))
	return nil
}

func (b *batchProducer) Close() error { return nil }

func hits(n int) []searchrev.HitRecord {
	ret := make([]searchrev.HitRecord, n)
	for i := range ret {
		ret[i] = searchrev.HitRecord{
			HitTime:    time.Unix(1254033280+int64(i), 0).UTC(),
			VisitorKey: "10.0.0." + strconv.Itoa(i),
			Referrer:   "http://www.bing.com/search?q=ipod",
		}
	}
	return ret
}

func TestPublishBatches(t *testing.T) {
	prod := &batchProducer{}
	pub := NewPublisher(prod, "hits")
	pub.BatchSize = 2
	n, err := pub.Publish(context.Background(), searchrev.NewSliceSource(hits(5)))
	test.ErrNil(t, err, "publishing")
	if n != 5 {
		t.Fatalf("expected 5 sent, got %d", n)
	}
	sizes := make([]int, len(prod.batches))
	for i, b := range prod.batches {
		sizes[i] = len(b)
	}
	test.MustBe(t, []int{2, 2, 1}, sizes, "batch sizes")

	msg := prod.batches[2][0]
	test.MustBe(t, "hits", msg.Topic)
	test.MustBe(t, sarama.StringEncoder("10.0.0.4"), msg.Key)
	val := string(msg.Value.(sarama.StringEncoder))
	if !strings.HasPrefix(val, "1254033284\t") {
		t.Fatalf("value should be a feed row: %q", val)
	}
}

func TestPublishError(t *testing.T) {
	pub := NewPublisher(&batchProducer{fail: true}, "hits")
	n, err := pub.Publish(context.Background(), searchrev.NewSliceSource(hits(3)))
	if err == nil {
		t.Fatal("expected error from failing producer")
	}
	if n != 0 {
		t.Fatalf("nothing should count as sent, got %d", n)
	}
}

func TestPublishCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := NewPublisher(&batchProducer{}, "hits")
	if _, err := pub.Publish(ctx, searchrev.NewSliceSource(hits(3))); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPublishRoundTrip(t *testing.T) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	prod := mocks.NewSyncProducer(t, conf)
	want := hits(1)[0]
	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		got, err := searchrev.ParseRow(1, strings.Split(string(val), "\t"))
		if err != nil {
			return err
		}
		if got != want {
			return errors.Errorf("got %#v, want %#v", got, want)
		}
		return nil
	})
	pub := NewPublisher(prod, "hits")
	pub.BatchSize = 1
	_, err := pub.Publish(context.Background(), searchrev.NewSliceSource([]searchrev.HitRecord{want}))
	test.ErrNil(t, err, "publishing")
	test.ErrNil(t, prod.Close(), "closing mock producer")
}
