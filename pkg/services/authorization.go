package services

import (
	"context"
	"fmt"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// Guard authorizes mutating operations against a template's owner or an
// admin-tier role. It is a pure check and must run before every mutating
// stage/task/step/element/template operation, resolved through the owning
// template.
type Guard struct {
	persistence persistence.Persistence
}

// NewGuard creates a new permission guard.
func NewGuard(persistence persistence.Persistence) *Guard {
	return &Guard{persistence: persistence}
}

// Authorize fails with ErrNotAuthorized unless userID owns the template or
// holds an admin-tier role.
func (g *Guard) Authorize(ctx context.Context, template *models.Template, userID string) error {
	if template.CreatedBy == userID {
		return nil
	}

	roles, err := g.persistence.Roles().GetRoles(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up roles for %s: %w", userID, err)
	}

	for _, role := range roles {
		if role.IsAdminTier() {
			return nil
		}
	}

	return ErrNotAuthorized
}

// AuthorizeTemplateID resolves the template and runs Authorize.
func (g *Guard) AuthorizeTemplateID(ctx context.Context, templateID, userID string) (*models.Template, error) {
	template, err := g.persistence.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	if err := g.Authorize(ctx, template, userID); err != nil {
		return nil, err
	}

	return template, nil
}

// TemplateForStage resolves the owning template of a stage.
func (g *Guard) TemplateForStage(ctx context.Context, stageID string) (*models.Template, error) {
	stage, err := g.persistence.Stages().GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if stage == nil {
		return nil, persistence.ErrStageNotFound
	}

	template, err := g.persistence.Templates().GetByID(ctx, stage.TemplateID)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	return template, nil
}

// TemplateForTask resolves Task -> Stage -> Template.
func (g *Guard) TemplateForTask(ctx context.Context, taskID string) (*models.Template, error) {
	task, err := g.persistence.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task == nil {
		return nil, persistence.ErrTaskNotFound
	}

	return g.TemplateForStage(ctx, task.StageID)
}

// TemplateForStep resolves Step -> Task -> Stage -> Template.
func (g *Guard) TemplateForStep(ctx context.Context, stepID string) (*models.Template, error) {
	step, err := g.persistence.Steps().GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if step == nil {
		return nil, persistence.ErrStepNotFound
	}

	return g.TemplateForTask(ctx, step.TaskID)
}

// TemplateForElement resolves Element -> Step -> Task -> Stage -> Template.
func (g *Guard) TemplateForElement(ctx context.Context, elementID string) (*models.Template, error) {
	element, err := g.persistence.Elements().GetByID(ctx, elementID)
	if err != nil {
		return nil, err
	}

	if element == nil {
		return nil, persistence.ErrElementNotFound
	}

	return g.TemplateForStep(ctx, element.StepID)
}
