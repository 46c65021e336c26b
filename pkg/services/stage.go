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

// Stage manages stage rows under a template.
type Stage struct {
	persistence persistence.Persistence
	guard       *Guard
	toucher     *Toucher
}

// NewStage creates a stage service.
func NewStage(persistence persistence.Persistence, guard *Guard, toucher *Toucher) *Stage {
	return &Stage{persistence: persistence, guard: guard, toucher: toucher}
}

// CreateStageRequest carries the fields accepted when creating a stage.
type CreateStageRequest struct {
	Name          string
	Description   string
	IsRequired    bool
	AllowSkip     bool
	AutoAdvance   bool
	Condition     *models.Condition
	ClientVisible bool
}

// StagePatch applies partial-update semantics.
type StagePatch struct {
	Name          *string
	Description   *string
	StageOrder    *int
	IsRequired    *bool
	AllowSkip     *bool
	AutoAdvance   *bool
	Condition     *models.Condition
	ClientVisible *bool
}

// Create validates the parent template, authorizes the actor, assigns the
// next stage order, and persists the stage.
func (s *Stage) Create(ctx context.Context, templateID string, req CreateStageRequest, actor string) (*models.Stage, error) {
	if _, err := s.guard.AuthorizeTemplateID(ctx, templateID, actor); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	if err := req.Condition.Validate(); err != nil {
		return nil, NewValidationError("Stage.Create", "INVALID_CONDITION", err.Error(), ErrInvalidCondition)
	}

	order, err := nextOrder(ctx, s.persistence.Stages().MaxOrder, templateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stage := &models.Stage{
		ID:            uuid.New().String(),
		TemplateID:    templateID,
		Name:          req.Name,
		Description:   req.Description,
		StageOrder:    order,
		IsRequired:    req.IsRequired,
		AllowSkip:     req.AllowSkip,
		AutoAdvance:   req.AutoAdvance,
		Condition:     req.Condition,
		ClientVisible: req.ClientVisible,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.persistence.Stages().Save(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}

	s.toucher.Touch(ctx, templateID, actor)

	return stage, nil
}

// Update applies a partial update to a stage.
func (s *Stage) Update(ctx context.Context, id string, patch StagePatch, actor string) (*models.Stage, error) {
	stage, err := s.persistence.Stages().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if stage == nil {
		return nil, persistence.ErrStageNotFound
	}

	template, err := s.guard.TemplateForStage(ctx, id)
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

		stage.Name = *patch.Name
	}

	if patch.Description != nil {
		stage.Description = *patch.Description
	}

	if patch.StageOrder != nil {
		stage.StageOrder = *patch.StageOrder
	}

	if patch.IsRequired != nil {
		stage.IsRequired = *patch.IsRequired
	}

	if patch.AllowSkip != nil {
		stage.AllowSkip = *patch.AllowSkip
	}

	if patch.AutoAdvance != nil {
		stage.AutoAdvance = *patch.AutoAdvance
	}

	if patch.Condition != nil {
		if err := patch.Condition.Validate(); err != nil {
			return nil, NewValidationError("Stage.Update", "INVALID_CONDITION", err.Error(), ErrInvalidCondition)
		}

		stage.Condition = patch.Condition
	}

	if patch.ClientVisible != nil {
		stage.ClientVisible = *patch.ClientVisible
	}

	stage.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Stages().Save(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	s.toucher.Touch(ctx, template.ID, actor)

	return stage, nil
}

// Delete removes a stage and, through store-level cascade, all its tasks,
// steps, and elements. It fails with ErrActiveInstances while any instance
// of the owning template is active, leaving the hierarchy unchanged.
func (s *Stage) Delete(ctx context.Context, id, actor string) error {
	template, err := s.guard.TemplateForStage(ctx, id)
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

	if err := s.persistence.Stages().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}

	s.toucher.Touch(ctx, template.ID, actor)

	return nil
}
