package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getplaybook/playbook/pkg/eventbus"
	"github.com/getplaybook/playbook/pkg/events"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// Toucher updates a template's audit timestamp after one of its descendants
// is mutated. With a publisher configured the touch is handed to the event
// bus and applied asynchronously by a TouchWorker; publish failures are
// logged, never surfaced to the mutating caller. Without a publisher the
// touch is applied synchronously.
type Toucher struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	cache       TreeCache
	logger      *slog.Logger
}

// NewToucher creates a toucher. publisher and cache may be nil.
func NewToucher(persistence persistence.Persistence, publisher eventbus.EventPublisher, cache TreeCache, logger *slog.Logger) *Toucher {
	return &Toucher{persistence: persistence, publisher: publisher, cache: cache, logger: logger}
}

// Touch marks the template as updated by userID. Best-effort: failures are
// logged and swallowed. The cached tree is dropped immediately so readers
// never see the pre-mutation hierarchy.
func (t *Toucher) Touch(ctx context.Context, templateID, userID string) {
	if t.cache != nil {
		if err := t.cache.Invalidate(ctx, templateID); err != nil {
			t.logger.WarnContext(ctx, "failed to invalidate tree cache", "template_id", templateID, "error", err)
		}
	}

	if t.publisher != nil {
		event := events.TemplateTouched{
			BaseEvent: events.NewBaseEvent(events.TemplateTouchedEvent, templateID),
			TouchedBy: userID,
		}

		if err := t.publisher.Publish(ctx, templateID, event); err != nil {
			t.logger.ErrorContext(ctx, "failed to publish template touch", "template_id", templateID, "error", err)
		}

		return
	}

	if err := t.apply(ctx, templateID, userID); err != nil {
		t.logger.ErrorContext(ctx, "failed to touch template", "template_id", templateID, "error", err)
	}
}

func (t *Toucher) apply(ctx context.Context, templateID, userID string) error {
	template, err := t.persistence.Templates().GetByID(ctx, templateID)
	if err != nil {
		return err
	}

	if template == nil {
		return persistence.ErrTemplateNotFound
	}

	template.UpdatedAt = time.Now().UTC()
	template.UpdatedBy = userID

	return t.persistence.Templates().Save(ctx, template)
}

const (
	touchRetries      = 3
	touchRetryBackoff = 200 * time.Millisecond
)

// TouchWorker consumes template.touched events and applies the timestamp
// update with retries, giving the detached touch an explicit delivery
// channel.
type TouchWorker struct {
	toucher *Toucher
	logger  *slog.Logger
}

func NewTouchWorker(persistence persistence.Persistence, logger *slog.Logger) *TouchWorker {
	return &TouchWorker{
		toucher: NewToucher(persistence, nil, nil, logger),
		logger:  logger,
	}
}

// Register attaches the worker to the bus. Subscribe must be called on the
// bus by the caller.
func (w *TouchWorker) Register(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.TemplateTouchedEvent, w.handle)
}

func (w *TouchWorker) handle(ctx context.Context, raw any) error {
	event, ok := raw.(*events.TemplateTouched)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	var err error

	for attempt := 1; attempt <= touchRetries; attempt++ {
		err = w.toucher.apply(ctx, event.TemplateID, event.TouchedBy)
		if err == nil {
			return nil
		}

		if persistence.IsNotFound(err) {
			// The template was removed between mutation and delivery.
			w.logger.WarnContext(ctx, "dropping touch for missing template", "template_id", event.TemplateID)

			return nil
		}

		time.Sleep(time.Duration(attempt) * touchRetryBackoff)
	}

	w.logger.ErrorContext(ctx, "template touch failed after retries",
		"template_id", event.TemplateID, "attempts", touchRetries, "error", err)

	return err
}
