package interfaces

import (
	"github.com/ternarybob/scribe/internal/models"
)

// JobUpdateHandler receives live job updates on a subscribed channel
type JobUpdateHandler func(event models.JobUpdateEvent)

// JobEventBus fans job updates out to connected UI streams. In-process only,
// not cross-instance: running this component redundantly across server
// processes requires an external coordinator. Fan-out is synchronous and
// fire-and-forget; a slow subscriber must never block job processing, so
// handlers are expected to buffer internally.
type JobEventBus interface {
	// Subscribe registers a handler on a channel and returns an unsubscribe func
	Subscribe(channel string, handler JobUpdateHandler) (unsubscribe func())

	// EmitUpdate delivers an event to every subscriber of the channel
	EmitUpdate(channel string, event models.JobUpdateEvent)

	// SubscriberCount returns the number of active subscribers on a channel
	SubscriberCount(channel string) int

	Close()
}
