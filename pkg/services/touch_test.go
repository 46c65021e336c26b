package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/eventbus"
	"github.com/getplaybook/playbook/pkg/events"
)

// capturingPublisher records published events instead of delivering them.
type capturingPublisher struct {
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	p.published = append(p.published, event)

	return nil
}

func TestToucher_SynchronousWithoutPublisher(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	toucher := NewToucher(f.persistence, nil, nil, slog.New(slog.DiscardHandler))
	toucher.Touch(t.Context(), template.ID, "editor-1")

	touched, err := f.templates.FetchByID(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor-1", touched.UpdatedBy)
	assert.False(t, touched.UpdatedAt.Before(template.UpdatedAt))
}

func TestToucher_DefersToPublisher(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	publisher := &capturingPublisher{}

	toucher := NewToucher(f.persistence, publisher, nil, slog.New(slog.DiscardHandler))
	toucher.Touch(t.Context(), template.ID, "editor-1")

	require.Len(t, publisher.published, 1)
	event, ok := publisher.published[0].(events.TemplateTouched)
	require.True(t, ok)
	assert.Equal(t, template.ID, event.TemplateID)
	assert.Equal(t, "editor-1", event.TouchedBy)

	// The write is deferred to the worker; the template row is untouched.
	stored, err := f.templates.FetchByID(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.UpdatedBy)
}

func TestToucher_InvalidatesCacheBeforePublishing(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	cache := &staticCache{}
	toucher := NewToucher(f.persistence, &capturingPublisher{}, cache, slog.New(slog.DiscardHandler))
	toucher.Touch(t.Context(), template.ID, "editor-1")

	assert.Equal(t, 1, cache.invalidates)
}

func TestTouchWorker_AppliesTouch(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	worker := NewTouchWorker(f.persistence, slog.New(slog.DiscardHandler))
	event := &events.TemplateTouched{
		BaseEvent: events.NewBaseEvent(events.TemplateTouchedEvent, template.ID),
		TouchedBy: "editor-1",
	}

	require.NoError(t, worker.handle(t.Context(), event))

	touched, err := f.templates.FetchByID(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor-1", touched.UpdatedBy)
}

func TestTouchWorker_DropsTouchForMissingTemplate(t *testing.T) {
	f := newFixture()

	worker := NewTouchWorker(f.persistence, slog.New(slog.DiscardHandler))
	event := &events.TemplateTouched{
		BaseEvent: events.NewBaseEvent(events.TemplateTouchedEvent, "missing"),
		TouchedBy: "editor-1",
	}

	assert.NoError(t, worker.handle(t.Context(), event))
}

func TestTouchWorker_RejectsUnexpectedPayload(t *testing.T) {
	f := newFixture()

	worker := NewTouchWorker(f.persistence, slog.New(slog.DiscardHandler))

	assert.Error(t, worker.handle(t.Context(), "not an event"))
}
