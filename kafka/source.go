// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package kafka reads and writes the hit feed on Kafka topics, one feed row
// per message.
package kafka

import (
	"io"
	"io/ioutil"
	"log"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
)

var _ searchrev.Source = &Source{}

// offsetCommitter is the part of the cluster consumer the Source needs once
// it's open.
type offsetCommitter interface {
	MarkOffset(msg *sarama.ConsumerMessage, metadata string)
	CommitOffsets() error
}

type partition struct {
	topic string
	id    int32
}

// Source implements the searchrev.Source interface using a Kafka consumer
// group. Each message value is one tab separated feed row. A message holding
// the feed header is skipped.
//
// A batch run needs an end to the feed: Record returns io.EOF after MaxMsgs
// messages, or when no message arrives for IdleTimeout.
//
// Consumed messages are not marked as processed until Commit is called, so
// a run which fails before Commit leaves the group's offsets where they were
// and the next run reads the same messages again.
type Source struct {
	Hosts       []string
	Topics      []string
	Group       string
	MaxMsgs     int
	IdleTimeout time.Duration
	Log         searchrev.Logger

	numMsgs   int
	consumer  *cluster.Consumer
	messages  <-chan *sarama.ConsumerMessage
	committer offsetCommitter
	last      map[partition]*sarama.ConsumerMessage
}

// NewSource gets a new Source
func NewSource() *Source {
	return &Source{
		Hosts:       []string{"localhost:9092"},
		Topics:      []string{"hits"},
		Group:       "searchrev",
		IdleTimeout: 10 * time.Second,
		Log:         searchrev.NopLogger{},
	}
}

var header = strings.Join(searchrev.Columns, "\t")

// Record returns the hit in the next kafka message.
func (s *Source) Record() (searchrev.HitRecord, error) {
	for {
		if s.MaxMsgs > 0 && s.numMsgs >= s.MaxMsgs {
			return searchrev.HitRecord{}, io.EOF
		}
		msg, err := s.next()
		if err != nil {
			return searchrev.HitRecord{}, err
		}
		s.numMsgs++
		s.consumed(msg)
		line := strings.TrimSuffix(string(msg.Value), "\r")
		if line == header || strings.TrimSpace(line) == "" {
			continue
		}
		hit, err := searchrev.ParseRow(s.numMsgs, strings.Split(line, "\t"))
		if err != nil {
			return searchrev.HitRecord{}, errors.Wrapf(err, "parsing message at %s/%d offset %d", msg.Topic, msg.Partition, msg.Offset)
		}
		return hit, nil
	}
}

func (s *Source) consumed(msg *sarama.ConsumerMessage) {
	if s.last == nil {
		s.last = make(map[partition]*sarama.ConsumerMessage)
	}
	s.last[partition{msg.Topic, msg.Partition}] = msg
}

// Commit marks every message consumed so far as processed and commits the
// offsets to the consumer group. Call it once the hits have been fully
// handled.
func (s *Source) Commit() error {
	if len(s.last) == 0 {
		return nil
	}
	for _, msg := range s.last {
		s.committer.MarkOffset(msg, "")
	}
	if err := s.committer.CommitOffsets(); err != nil {
		return errors.Wrap(err, "committing offsets")
	}
	s.Log.Debugf("committed offsets of %d partitions", len(s.last))
	s.last = nil
	return nil
}

func (s *Source) next() (*sarama.ConsumerMessage, error) {
	var idle <-chan time.Time
	if s.IdleTimeout > 0 {
		timer := time.NewTimer(s.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}
	select {
	case msg, ok := <-s.messages:
		if !ok {
			return nil, errors.New("messages channel closed")
		}
		return msg, nil
	case <-idle:
		s.Log.Printf("no kafka message for %v after %d messages, ending feed", s.IdleTimeout, s.numMsgs)
		return nil, io.EOF
	}
}

// Open initializes the kafka source.
func (s *Source) Open() error {
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	if s.Log == nil {
		s.Log = searchrev.NopLogger{}
	}
	config := cluster.NewConfig()
	config.Config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Group.Return.Notifications = true

	var err error
	s.consumer, err = cluster.NewConsumer(s.Hosts, s.Group, s.Topics, config)
	if err != nil {
		return errors.Wrap(err, "getting new consumer")
	}
	s.messages = s.consumer.Messages()
	s.committer = s.consumer

	// consume errors
	go func() {
		for err := range s.consumer.Errors() {
			s.Log.Printf("kafka consumer error: %v", err)
		}
	}()

	// consume notifications
	go func() {
		for ntf := range s.consumer.Notifications() {
			s.Log.Debugf("rebalanced: %+v", ntf)
		}
	}()
	return nil
}

// Close closes the underlying kafka consumer. Offsets of messages consumed
// since the last Commit are not committed.
func (s *Source) Close() error {
	if s.consumer == nil {
		return nil
	}
	err := s.consumer.Close()
	return errors.Wrap(err, "closing kafka consumer")
}
