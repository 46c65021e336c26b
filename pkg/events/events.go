// Package events defines event types for template and instance lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all playbook lifecycle events.
const Topic = "playbook.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Template lifecycle events.
	TemplateTouchedEvent   EventType = "template.touched"
	TemplatePublishedEvent EventType = "template.published"

	// Instance lifecycle events.
	InstanceCreatedEvent   EventType = "instance.created"
	InstanceCompletedEvent EventType = "instance.completed"
	StepDataSubmittedEvent EventType = "instance.stepdata.submitted"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	TemplateID string    `json:"template_id"`
}

// NewBaseEvent creates the shared envelope for a template-scoped event.
func NewBaseEvent(eventType EventType, templateID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TemplateID: templateID,
	}
}

// TemplateTouched requests an audit-timestamp update on a template after one
// of its descendants was mutated. Delivery is asynchronous and retried by the
// touch worker; the mutating caller never waits on it.
type TemplateTouched struct {
	BaseEvent

	TouchedBy string `json:"touched_by"`
}

func (e TemplateTouched) GetType() EventType {
	return TemplateTouchedEvent
}

type TemplatePublished struct {
	BaseEvent

	Version     int    `json:"version"`
	PublishedBy string `json:"published_by"`
}

func (e TemplatePublished) GetType() EventType {
	return TemplatePublishedEvent
}

type InstanceCreated struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	CreatedBy  string `json:"created_by"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

type InstanceCompleted struct {
	BaseEvent

	InstanceID string        `json:"instance_id"`
	Duration   time.Duration `json:"duration"`
}

func (e InstanceCompleted) GetType() EventType {
	return InstanceCompletedEvent
}

type StepDataSubmitted struct {
	BaseEvent

	InstanceID  string `json:"instance_id"`
	StepID      string `json:"step_id"`
	ElementKey  string `json:"element_key"`
	SubmittedBy string `json:"submitted_by"`
}

func (e StepDataSubmitted) GetType() EventType {
	return StepDataSubmittedEvent
}
