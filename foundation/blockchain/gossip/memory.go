package gossip

import (
	"sync"
)

// MemoryBus connects brokers living in the same process. It is used to run
// several nodes against each other without a network.
type MemoryBus struct {
	mu      sync.RWMutex
	members []*MemoryBroker
}

// NewMemoryBus constructs an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Join returns a broker attached to the bus. The event handler receives
// the errors returned by this broker's subscribers.
func (bus *MemoryBus) Join(evHandler func(v string, args ...any)) *MemoryBroker {
	mb := MemoryBroker{
		bus:       bus,
		subs:      newSubscribers(),
		evHandler: evHandler,
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.members = append(bus.members, &mb)

	return &mb
}

func (bus *MemoryBus) others(self *MemoryBroker) []*MemoryBroker {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	others := make([]*MemoryBroker, 0, len(bus.members))
	for _, mb := range bus.members {
		if mb != self {
			others = append(others, mb)
		}
	}

	return others
}

// =============================================================================

// MemoryBroker is a broker attached to a MemoryBus.
type MemoryBroker struct {
	bus       *MemoryBus
	subs      *subscribers
	evHandler func(v string, args ...any)
}

// Publish delivers the payload to every other broker on the bus. Delivery
// happens synchronously so a test can observe the effects once Publish
// returns. A failing subscriber never fails the publisher.
func (mb *MemoryBroker) Publish(channel string, payload any) error {
	env, err := newEnvelope(channel, payload)
	if err != nil {
		return err
	}

	for _, other := range mb.bus.others(mb) {
		if err := other.subs.dispatch(env); err != nil {
			other.evHandler("gossip: memory: channel[%s]: WARNING: %s", channel, err)
		}
	}

	return nil
}

// Subscribe registers the handler for messages on the channel.
func (mb *MemoryBroker) Subscribe(channel string, handler Handler) {
	mb.subs.add(channel, handler)
}
