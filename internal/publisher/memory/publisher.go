// Package memory contains an in-memory notification publisher for tests and
// runs without a broker.
package memory

import (
	"context"
	"maps"
	"strconv"
	"sync"
)

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
	// Attributes mirrors what the Pub/Sub publisher would attach.
	Attributes map[string]string
}

// Publisher records notifications in publish order.
type Publisher struct {
	// Err, when set, fails every publish.
	Err error

	mu       sync.Mutex
	messages []PublishedMessage
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns its sequence-based ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	msg := PublishedMessage{
		ID:      "memory-" + strconv.Itoa(len(p.messages)+1),
		Topic:   topic,
		Payload: payload,
	}
	if a, ok := payload.(interface{ Attributes() map[string]string }); ok {
		msg.Attributes = maps.Clone(a.Attributes())
	}
	p.messages = append(p.messages, msg)
	return msg.ID, nil
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
