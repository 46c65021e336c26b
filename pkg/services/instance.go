package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getplaybook/playbook/pkg/eventbus"
	"github.com/getplaybook/playbook/pkg/events"
	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/google/uuid"
)

// Instance manages execution instances of published templates. Status moves
// monotonically draft -> active -> completed.
type Instance struct {
	persistence persistence.Persistence
	progress    *Progress
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewInstance creates an instance service. publisher may be nil.
func NewInstance(
	persistence persistence.Persistence,
	progress *Progress,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Instance {
	return &Instance{
		persistence: persistence,
		progress:    progress,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateInstanceRequest carries the context for a new instance.
type CreateInstanceRequest struct {
	TemplateID string
	ProjectID  *string
	ClientID   *string
	Data       map[string]any
	CreatedBy  string
}

// ProgressUpdate applies partial-update semantics to an instance's execution
// state.
type ProgressUpdate struct {
	CurrentStageID       *string
	CurrentTaskID        *string
	CurrentStepID        *string
	CompletionPercentage *int
	Status               *models.InstanceStatus
	UpdatedBy            string
}

// StepDataSubmission is one submitted element value for a step.
type StepDataSubmission struct {
	ElementKey  string
	Value       any
	DataType    string
	SubmittedBy string
}

// Create starts a new draft instance against a published template.
func (s *Instance) Create(ctx context.Context, req CreateInstanceRequest) (*models.Instance, error) {
	template, err := s.persistence.Templates().GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	if !template.IsPublished {
		return nil, ErrTemplateNotPublished
	}

	now := time.Now().UTC()
	instance := &models.Instance{
		ID:                   uuid.New().String(),
		TemplateID:           req.TemplateID,
		Status:               models.InstanceStatusDraft,
		CompletionPercentage: 0,
		ProjectID:            req.ProjectID,
		ClientID:             req.ClientID,
		Data:                 req.Data,
		CreatedBy:            req.CreatedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.persistence.Instances().Save(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	s.publish(ctx, events.InstanceCreated{
		BaseEvent:  events.NewBaseEvent(events.InstanceCreatedEvent, req.TemplateID),
		InstanceID: instance.ID,
		CreatedBy:  req.CreatedBy,
	})

	return instance, nil
}

// FetchByID retrieves an instance by its ID.
func (s *Instance) FetchByID(ctx context.Context, id string) (*models.Instance, error) {
	instance, err := s.persistence.Instances().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if instance == nil {
		return nil, persistence.ErrInstanceNotFound
	}

	return instance, nil
}

// UpdateProgress applies only the supplied fields. Transitioning to active
// stamps started_at once; transitioning to completed stamps completed_at and
// forces completion_percentage to 100 regardless of the supplied value.
func (s *Instance) UpdateProgress(ctx context.Context, id string, update ProgressUpdate) (*models.Instance, error) {
	instance, err := s.persistence.Instances().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if instance == nil {
		return nil, persistence.ErrInstanceNotFound
	}

	now := time.Now().UTC()
	completedNow := false

	if update.Status != nil && *update.Status != instance.Status {
		if err := validateTransition(instance.Status, *update.Status); err != nil {
			return nil, err
		}

		instance.Status = *update.Status

		switch *update.Status {
		case models.InstanceStatusActive:
			if instance.StartedAt == nil {
				instance.StartedAt = &now
			}
		case models.InstanceStatusCompleted:
			if instance.CompletedAt == nil {
				instance.CompletedAt = &now
			}

			completedNow = true
		}
	}

	if update.CurrentStageID != nil {
		instance.CurrentStageID = update.CurrentStageID
	}

	if update.CurrentTaskID != nil {
		instance.CurrentTaskID = update.CurrentTaskID
	}

	if update.CurrentStepID != nil {
		instance.CurrentStepID = update.CurrentStepID
	}

	if update.CompletionPercentage != nil {
		instance.CompletionPercentage = clampPercentage(*update.CompletionPercentage)
	}

	if completedNow || instance.Status == models.InstanceStatusCompleted {
		instance.CompletionPercentage = 100
	}

	instance.UpdatedAt = now
	instance.UpdatedBy = update.UpdatedBy

	if err := s.persistence.Instances().Save(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to update instance progress: %w", err)
	}

	if completedNow {
		duration := time.Duration(0)
		if instance.StartedAt != nil {
			duration = instance.CompletedAt.Sub(*instance.StartedAt)
		}

		s.publish(ctx, events.InstanceCompleted{
			BaseEvent:  events.NewBaseEvent(events.InstanceCompletedEvent, instance.TemplateID),
			InstanceID: instance.ID,
			Duration:   duration,
		})
	}

	return instance, nil
}

// validateTransition enforces the monotonic draft -> active -> completed
// lifecycle. The status set is open; unknown statuses are accepted but the
// completed state is terminal and nothing returns to draft.
func validateTransition(from, to models.InstanceStatus) error {
	if from == models.InstanceStatusCompleted {
		return NewValidationError("UpdateProgress", "STATUS_TERMINAL",
			fmt.Sprintf("instance is completed, cannot move to %q", to), ErrInvalidStatusChange)
	}

	if to == models.InstanceStatusDraft {
		return NewValidationError("UpdateProgress", "STATUS_REGRESSION",
			fmt.Sprintf("cannot move back to draft from %q", from), ErrInvalidStatusChange)
	}

	return nil
}

func clampPercentage(value int) int {
	if value < 0 {
		return 0
	}

	if value > 100 {
		return 100
	}

	return value
}

// SubmitStepData upserts the submitted value for (instance, step, element
// key) and recomputes the instance's completion percentage. The row is
// always marked valid; field-level validation against the step's rules is
// handled by a separate validator before submission.
func (s *Instance) SubmitStepData(ctx context.Context, instanceID, stepID string, submission StepDataSubmission) (*models.StepData, error) {
	instance, err := s.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if instance == nil {
		return nil, persistence.ErrInstanceNotFound
	}

	step, err := s.persistence.Steps().GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if step == nil {
		return nil, persistence.ErrStepNotFound
	}

	data := &models.StepData{
		ID:          uuid.New().String(),
		InstanceID:  instanceID,
		StepID:      stepID,
		ElementKey:  submission.ElementKey,
		Value:       submission.Value,
		DataType:    submission.DataType,
		IsValid:     true,
		SubmittedBy: submission.SubmittedBy,
		SubmittedAt: time.Now().UTC(),
	}

	if err := s.persistence.StepData().Upsert(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save step data: %w", err)
	}

	s.publish(ctx, events.StepDataSubmitted{
		BaseEvent:   events.NewBaseEvent(events.StepDataSubmittedEvent, instance.TemplateID),
		InstanceID:  instanceID,
		StepID:      stepID,
		ElementKey:  submission.ElementKey,
		SubmittedBy: submission.SubmittedBy,
	})

	if _, err := s.progress.Recompute(ctx, instanceID); err != nil {
		return nil, fmt.Errorf("failed to recompute progress: %w", err)
	}

	return data, nil
}

func (s *Instance) publish(ctx context.Context, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, string(event.GetType()), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish instance event", "type", event.GetType(), "error", err)
	}
}
