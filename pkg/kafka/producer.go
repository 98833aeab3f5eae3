package kafka

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("kafka producer closed")

// Producer writes messages asynchronously through a buffered inbox.
// The topic is chosen per message.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start drains the inbox until Close is called. Calls after the first, or
// after Close, do nothing.
func (p *Producer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				log.Printf("kafka: failed to write %s message: %v", m.Topic, err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			log.Printf("kafka: failed to close writer: %v", err)
		}
	}()
}

// Send enqueues a message; it blocks only while the inbox is full.
func (p *Producer) Send(ctx context.Context, topic string, key, body []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(topic)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages, flushes what is queued and waits for the writer to close.
func (p *Producer) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
		if !p.started {
			// nothing will drain the inbox; queued messages are dropped
			close(p.closeCh)
			p.mu.Unlock()
			return p.w.Close()
		}
	}
	p.mu.Unlock()

	<-p.closeCh
	return nil
}
