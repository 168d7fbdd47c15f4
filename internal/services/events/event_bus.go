package events

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Bus implements JobEventBus with per-channel subscriber maps. Delivery is
// synchronous; handlers must not block.
type Bus struct {
	mu       sync.RWMutex
	channels map[string]map[int]interfaces.JobUpdateHandler
	nextID   int
	closed   bool
	logger   arbor.ILogger
}

// NewBus creates a new in-process job event bus
func NewBus(logger arbor.ILogger) *Bus {
	return &Bus{
		channels: make(map[string]map[int]interfaces.JobUpdateHandler),
		logger:   logger,
	}
}

var _ interfaces.JobEventBus = (*Bus)(nil)

// Subscribe registers a handler on a channel. The returned unsubscribe func
// is idempotent and safe to call after Close.
func (b *Bus) Subscribe(channel string, handler interfaces.JobUpdateHandler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	if b.channels[channel] == nil {
		b.channels[channel] = make(map[int]interfaces.JobUpdateHandler)
	}
	id := b.nextID
	b.nextID++
	b.channels[channel][id] = handler

	b.logger.Debug().
		Str("channel", channel).
		Int("subscriber_count", len(b.channels[channel])).
		Msg("Event subscriber registered")

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs, ok := b.channels[channel]
		if !ok {
			return
		}
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.channels, channel)
		}
	}
}

// EmitUpdate delivers an event to every subscriber of the channel
func (b *Bus) EmitUpdate(channel string, event models.JobUpdateEvent) {
	b.mu.RLock()
	subs := b.channels[channel]
	handlers := make([]interfaces.JobUpdateHandler, 0, len(subs))
	for _, h := range subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	b.logger.Debug().
		Str("channel", channel).
		Str("job_id", event.JobID).
		Int("subscriber_count", len(handlers)).
		Msg("Emitting job update")

	for _, handler := range handlers {
		handler(event)
	}
}

// SubscriberCount returns the number of active subscribers on a channel
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

// Close drops all subscribers and rejects new subscriptions
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = make(map[string]map[int]interfaces.JobUpdateHandler)
	b.closed = true
	b.logger.Debug().Msg("Event bus closed")
}
