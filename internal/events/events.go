// Package events publishes product-computed notifications to Kafka for
// downstream consumers (report builders, archival). Publishing never blocks
// the request path; events are dropped when the queue is full.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type Event struct {
	Scene    string    `json:"scene"`
	Index    string    `json:"index"`
	Pixels   int       `json:"pixels"`
	CacheHit bool      `json:"cache_hit"`
	TS       time.Time `json:"ts"`
}

type Publisher struct {
	topic   string
	logger  *slog.Logger
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
}

func NewPublisher(logger *slog.Logger, brokers []string, topic string, queueSize int) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}

	p := &Publisher{
		topic:   topic,
		logger:  logger,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Error("event marshal failed", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Scene),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Error("event producer error", "err", err)
			}
		}
	}()

	return p, nil
}

func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
	default:
		// queue full: drop rather than stall a compute request
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
