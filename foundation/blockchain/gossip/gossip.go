// Package gossip propagates chain and transaction updates between nodes.
// Delivery is best effort: a message is sent at most once to each peer,
// without acknowledgment or retry.
package gossip

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Set of channels a node publishes on.
const (
	ChannelChain       = "CHAIN"
	ChannelTransaction = "TRANSACTION"
)

// Envelope is the wire format of a gossip message.
type Envelope struct {
	Channel string          `json:"channel" validate:"required,oneof=CHAIN TRANSACTION"`
	Message json.RawMessage `json:"message" validate:"required"`
}

// Handler processes the message received on a channel.
type Handler func(message json.RawMessage) error

// Broker represents the behavior required to publish messages to the other
// nodes and to receive theirs.
type Broker interface {
	Publish(channel string, payload any) error
	Subscribe(channel string, handler Handler)
}

// =============================================================================

// subscribers maintains the handlers registered for each channel.
type subscribers struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newSubscribers() *subscribers {
	return &subscribers{
		handlers: make(map[string][]Handler),
	}
}

func (s *subscribers) add(channel string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[channel] = append(s.handlers[channel], handler)
}

// dispatch calls every handler registered for the envelope's channel and
// returns the first error.
func (s *subscribers) dispatch(env Envelope) error {
	s.mu.RLock()
	handlers := s.handlers[env.Channel]
	s.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for channel %q", env.Channel)
	}

	var first error
	for _, handler := range handlers {
		if err := handler(env.Message); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// newEnvelope marshals the payload into an envelope for the channel.
func newEnvelope(channel string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", channel, err)
	}

	return Envelope{Channel: channel, Message: data}, nil
}
