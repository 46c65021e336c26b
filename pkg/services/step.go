package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/google/uuid"
)

// Step manages step rows under a task.
type Step struct {
	persistence persistence.Persistence
	guard       *Guard
	toucher     *Toucher
}

// NewStep creates a step service.
func NewStep(persistence persistence.Persistence, guard *Guard, toucher *Toucher) *Step {
	return &Step{persistence: persistence, guard: guard, toucher: toucher}
}

// CreateStepRequest carries the fields accepted when creating a step.
type CreateStepRequest struct {
	Name                string
	Description         string
	AllowSkip           bool
	AutoAdvance         bool
	ShowProgress        bool
	AllowBackNavigation bool
	SaveProgress        bool
	ValidationRules     []models.ValidationRule
	Condition           *models.Condition
	ClientVisible       bool
}

// StepPatch applies partial-update semantics.
type StepPatch struct {
	Name                *string
	Description         *string
	StepOrder           *int
	AllowSkip           *bool
	AutoAdvance         *bool
	ShowProgress        *bool
	AllowBackNavigation *bool
	SaveProgress        *bool
	ValidationRules     []models.ValidationRule
	Condition           *models.Condition
	ClientVisible       *bool
}

// Create validates the parent task, authorizes the actor, assigns the next
// step order, and persists the step.
func (s *Step) Create(ctx context.Context, taskID string, req CreateStepRequest, actor string) (*models.Step, error) {
	task, err := s.persistence.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task == nil {
		return nil, persistence.ErrTaskNotFound
	}

	template, err := s.guard.TemplateForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Authorize(ctx, template, actor); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	if err := req.Condition.Validate(); err != nil {
		return nil, NewValidationError("Step.Create", "INVALID_CONDITION", err.Error(), ErrInvalidCondition)
	}

	order, err := nextOrder(ctx, s.persistence.Steps().MaxOrder, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	step := &models.Step{
		ID:                  uuid.New().String(),
		TaskID:              taskID,
		Name:                req.Name,
		Description:         req.Description,
		StepOrder:           order,
		AllowSkip:           req.AllowSkip,
		AutoAdvance:         req.AutoAdvance,
		ShowProgress:        req.ShowProgress,
		AllowBackNavigation: req.AllowBackNavigation,
		SaveProgress:        req.SaveProgress,
		ValidationRules:     req.ValidationRules,
		Condition:           req.Condition,
		ClientVisible:       req.ClientVisible,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.persistence.Steps().Save(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to create step: %w", err)
	}

	s.toucher.Touch(ctx, template.ID, actor)

	return step, nil
}

// Update applies a partial update to a step.
func (s *Step) Update(ctx context.Context, id string, patch StepPatch, actor string) (*models.Step, error) {
	step, err := s.persistence.Steps().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if step == nil {
		return nil, persistence.ErrStepNotFound
	}

	template, err := s.guard.TemplateForStep(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Authorize(ctx, template, actor); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, ErrNameRequired
		}

		step.Name = *patch.Name
	}

	if patch.Description != nil {
		step.Description = *patch.Description
	}

	if patch.StepOrder != nil {
		step.StepOrder = *patch.StepOrder
	}

	if patch.AllowSkip != nil {
		step.AllowSkip = *patch.AllowSkip
	}

	if patch.AutoAdvance != nil {
		step.AutoAdvance = *patch.AutoAdvance
	}

	if patch.ShowProgress != nil {
		step.ShowProgress = *patch.ShowProgress
	}

	if patch.AllowBackNavigation != nil {
		step.AllowBackNavigation = *patch.AllowBackNavigation
	}

	if patch.SaveProgress != nil {
		step.SaveProgress = *patch.SaveProgress
	}

	if patch.ValidationRules != nil {
		step.ValidationRules = patch.ValidationRules
	}

	if patch.Condition != nil {
		if err := patch.Condition.Validate(); err != nil {
			return nil, NewValidationError("Step.Update", "INVALID_CONDITION", err.Error(), ErrInvalidCondition)
		}

		step.Condition = patch.Condition
	}

	if patch.ClientVisible != nil {
		step.ClientVisible = *patch.ClientVisible
	}

	step.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Steps().Save(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}

	s.toucher.Touch(ctx, template.ID, actor)

	return step, nil
}

// Delete removes a step and its elements via store-level cascade, subject to
// the active-instance check.
func (s *Step) Delete(ctx context.Context, id, actor string) error {
	template, err := s.guard.TemplateForStep(ctx, id)
	if err != nil {
		return err
	}

	if err := s.guard.Authorize(ctx, template, actor); err != nil {
		return err
	}

	active, err := s.persistence.Instances().CountActive(ctx, template.ID)
	if err != nil {
		return fmt.Errorf("failed to count active instances: %w", err)
	}

	if active > 0 {
		return ErrActiveInstances
	}

	if err := s.persistence.Steps().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}

	s.toucher.Touch(ctx, template.ID, actor)

	return nil
}
