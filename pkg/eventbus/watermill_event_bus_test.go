package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/channels/gochannel"
	"github.com/getplaybook/playbook/pkg/eventbus"
	"github.com/getplaybook/playbook/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan any, 1)

	err := bus.Handle(events.TemplateTouchedEvent, func(ctx context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	event := events.TemplateTouched{
		BaseEvent: events.NewBaseEvent(events.TemplateTouchedEvent, "tpl-1"),
		TouchedBy: "editor-1",
	}
	require.NoError(t, bus.Publish(t.Context(), "tpl-1", event))

	select {
	case raw := <-received:
		touched, ok := raw.(*events.TemplateTouched)
		require.True(t, ok)
		assert.Equal(t, "tpl-1", touched.TemplateID)
		assert.Equal(t, "editor-1", touched.TouchedBy)
		assert.Equal(t, events.TemplateTouchedEvent, touched.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypesAreSkipped(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan any, 2)

	err := bus.Handle(events.InstanceCreatedEvent, func(ctx context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	// No handler is registered for this type.
	require.NoError(t, bus.Publish(t.Context(), "tpl-1", events.TemplatePublished{
		BaseEvent: events.NewBaseEvent(events.TemplatePublishedEvent, "tpl-1"),
		Version:   2,
	}))

	require.NoError(t, bus.Publish(t.Context(), "tpl-1", events.InstanceCreated{
		BaseEvent:  events.NewBaseEvent(events.InstanceCreatedEvent, "tpl-1"),
		InstanceID: "inst-1",
	}))

	select {
	case raw := <-received:
		created, ok := raw.(*events.InstanceCreated)
		require.True(t, ok)
		assert.Equal(t, "inst-1", created.InstanceID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Empty(t, received)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
