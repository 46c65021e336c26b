package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/getplaybook/playbook/pkg/eventbus"
	"github.com/getplaybook/playbook/pkg/events"
	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/google/uuid"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Template manages template rows: creation, listing, partial updates,
// publishing, and soft deletion guarded by the active-instance check.
type Template struct {
	persistence persistence.Persistence
	guard       *Guard
	publisher   eventbus.EventPublisher
	cache       TreeCache
	logger      *slog.Logger
}

// NewTemplate creates a template service. publisher and cache may be nil.
func NewTemplate(
	persistence persistence.Persistence,
	guard *Guard,
	publisher eventbus.EventPublisher,
	cache TreeCache,
	logger *slog.Logger,
) *Template {
	return &Template{
		persistence: persistence,
		guard:       guard,
		publisher:   publisher,
		cache:       cache,
		logger:      logger,
	}
}

// CreateTemplateRequest carries the fields accepted when creating a template.
type CreateTemplateRequest struct {
	Name                     string
	Description              string
	Type                     models.TemplateType
	Icon                     string
	Color                    string
	Category                 string
	Tags                     []string
	RequiresProductsServices bool
	AutoCreateProject        bool
	EstimatedDurationMinutes int
	ClientVisible            bool
	ClientDescription        string
	CreatedBy                string
}

// TemplatePatch applies partial-update semantics: only non-nil fields are
// written, everything else is left untouched.
type TemplatePatch struct {
	Name                     *string
	Description              *string
	Type                     *models.TemplateType
	Icon                     *string
	Color                    *string
	Category                 *string
	Tags                     []string
	IsActive                 *bool
	RequiresProductsServices *bool
	AutoCreateProject        *bool
	EstimatedDurationMinutes *int
	ClientVisible            *bool
	ClientDescription        *string
}

func validTemplateType(t models.TemplateType) bool {
	switch t {
	case models.TemplateTypeStandard, models.TemplateTypeFlowBased, models.TemplateTypeHybrid:
		return true
	default:
		return false
	}
}

// Create validates and persists a new template in draft (unpublished) state.
func (s *Template) Create(ctx context.Context, req CreateTemplateRequest) (*models.Template, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	if !validTemplateType(req.Type) {
		return nil, NewValidationError("Template.Create", "INVALID_TEMPLATE_TYPE",
			fmt.Sprintf("invalid template type %q", req.Type), ErrInvalidTemplateType)
	}

	if req.Color != "" && !hexColorPattern.MatchString(req.Color) {
		return nil, ErrInvalidColor
	}

	now := time.Now().UTC()
	template := &models.Template{
		ID:                       uuid.New().String(),
		Name:                     req.Name,
		Description:              req.Description,
		Type:                     req.Type,
		IsActive:                 true,
		IsPublished:              false,
		Version:                  1,
		Icon:                     req.Icon,
		Color:                    req.Color,
		Category:                 req.Category,
		Tags:                     req.Tags,
		RequiresProductsServices: req.RequiresProductsServices,
		AutoCreateProject:        req.AutoCreateProject,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		ClientVisible:            req.ClientVisible,
		ClientDescription:        req.ClientDescription,
		CreatedBy:                req.CreatedBy,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	return template, nil
}

// FetchByID retrieves a template row by its ID.
func (s *Template) FetchByID(ctx context.Context, id string) (*models.Template, error) {
	template, err := s.persistence.Templates().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	return template, nil
}

// List retrieves templates matching the filters.
func (s *Template) List(ctx context.Context, filters persistence.TemplateFilters) ([]*models.Template, error) {
	templates, err := s.persistence.Templates().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

// Update applies a partial update to a template.
func (s *Template) Update(ctx context.Context, id string, patch TemplatePatch, actor string) (*models.Template, error) {
	template, err := s.guard.AuthorizeTemplateID(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, ErrNameRequired
		}

		template.Name = *patch.Name
	}

	if patch.Type != nil {
		if !validTemplateType(*patch.Type) {
			return nil, NewValidationError("Template.Update", "INVALID_TEMPLATE_TYPE",
				fmt.Sprintf("invalid template type %q", *patch.Type), ErrInvalidTemplateType)
		}

		template.Type = *patch.Type
	}

	if patch.Color != nil {
		if *patch.Color != "" && !hexColorPattern.MatchString(*patch.Color) {
			return nil, ErrInvalidColor
		}

		template.Color = *patch.Color
	}

	if patch.Description != nil {
		template.Description = *patch.Description
	}

	if patch.Icon != nil {
		template.Icon = *patch.Icon
	}

	if patch.Category != nil {
		template.Category = *patch.Category
	}

	if patch.Tags != nil {
		template.Tags = patch.Tags
	}

	if patch.IsActive != nil {
		template.IsActive = *patch.IsActive
	}

	if patch.RequiresProductsServices != nil {
		template.RequiresProductsServices = *patch.RequiresProductsServices
	}

	if patch.AutoCreateProject != nil {
		template.AutoCreateProject = *patch.AutoCreateProject
	}

	if patch.EstimatedDurationMinutes != nil {
		template.EstimatedDurationMinutes = *patch.EstimatedDurationMinutes
	}

	if patch.ClientVisible != nil {
		template.ClientVisible = *patch.ClientVisible
	}

	if patch.ClientDescription != nil {
		template.ClientDescription = *patch.ClientDescription
	}

	template.UpdatedAt = time.Now().UTC()
	template.UpdatedBy = actor

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	s.invalidate(ctx, id)

	return template, nil
}

// Delete soft-deletes a template. It fails with ErrActiveInstances while any
// instance of the template is active; the row is never removed here.
func (s *Template) Delete(ctx context.Context, id, actor string) error {
	template, err := s.guard.AuthorizeTemplateID(ctx, id, actor)
	if err != nil {
		return err
	}

	active, err := s.persistence.Instances().CountActive(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count active instances: %w", err)
	}

	if active > 0 {
		return ErrActiveInstances
	}

	now := time.Now().UTC()
	template.DeletedAt = &now
	template.IsActive = false
	template.UpdatedAt = now
	template.UpdatedBy = actor

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	s.invalidate(ctx, id)

	return nil
}

// Publish marks the template published and bumps its version.
func (s *Template) Publish(ctx context.Context, id, actor string) (*models.Template, error) {
	template, err := s.guard.AuthorizeTemplateID(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	template.IsPublished = true
	template.Version++
	template.UpdatedAt = time.Now().UTC()
	template.UpdatedBy = actor

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to publish template: %w", err)
	}

	s.invalidate(ctx, id)

	if s.publisher != nil {
		event := events.TemplatePublished{
			BaseEvent:   events.NewBaseEvent(events.TemplatePublishedEvent, id),
			Version:     template.Version,
			PublishedBy: actor,
		}

		if err := s.publisher.Publish(ctx, id, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish template event", "template_id", id, "error", err)
		}
	}

	return template, nil
}

// Unpublish withdraws the template from instance creation.
func (s *Template) Unpublish(ctx context.Context, id, actor string) (*models.Template, error) {
	template, err := s.guard.AuthorizeTemplateID(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	template.IsPublished = false
	template.UpdatedAt = time.Now().UTC()
	template.UpdatedBy = actor

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to unpublish template: %w", err)
	}

	s.invalidate(ctx, id)

	return template, nil
}

func (s *Template) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate tree cache", "template_id", id, "error", err)
	}
}
