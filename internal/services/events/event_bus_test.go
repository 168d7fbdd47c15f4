package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

func TestBusDeliversToChannelSubscribersOnly(t *testing.T) {
	bus := NewBus(arbor.NewLogger())
	defer bus.Close()

	var gotA, gotB []models.JobUpdateEvent
	bus.Subscribe(models.JobUpdateChannel("a@example.org"), func(e models.JobUpdateEvent) {
		gotA = append(gotA, e)
	})
	bus.Subscribe(models.JobUpdateChannel("b@example.org"), func(e models.JobUpdateEvent) {
		gotB = append(gotB, e)
	})

	bus.EmitUpdate(models.JobUpdateChannel("a@example.org"), models.JobUpdateEvent{
		JobID:  "job_1",
		Status: models.JobStatusRunning,
	})

	assert.Len(t, gotA, 1)
	assert.Empty(t, gotB)
	assert.Equal(t, "job_1", gotA[0].JobID)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(arbor.NewLogger())
	defer bus.Close()

	channel := models.JobUpdateChannel("a@example.org")

	var count int
	unsubscribe := bus.Subscribe(channel, func(models.JobUpdateEvent) { count++ })
	assert.Equal(t, 1, bus.SubscriberCount(channel))

	bus.EmitUpdate(channel, models.JobUpdateEvent{JobID: "job_1"})
	unsubscribe()
	unsubscribe() // idempotent
	bus.EmitUpdate(channel, models.JobUpdateEvent{JobID: "job_2"})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.SubscriberCount(channel))
}

func TestBusEmitWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus(arbor.NewLogger())
	defer bus.Close()

	bus.EmitUpdate("job_update:nobody@example.org", models.JobUpdateEvent{JobID: "job_1"})
	assert.Equal(t, 0, bus.SubscriberCount("job_update:nobody@example.org"))
}

func TestBusCloseRejectsNewSubscriptions(t *testing.T) {
	bus := NewBus(arbor.NewLogger())
	bus.Close()

	var count int
	unsubscribe := bus.Subscribe("job_update:x", func(models.JobUpdateEvent) { count++ })
	bus.EmitUpdate("job_update:x", models.JobUpdateEvent{JobID: "job_1"})

	assert.Equal(t, 0, count)
	unsubscribe()
}
