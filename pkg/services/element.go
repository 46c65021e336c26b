package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// Per-category JSON Schemas for element config payloads. Configs stay
// free-form beyond these structural constraints.
var elementConfigSchemas = map[models.ElementCategory]string{
	models.ElementCategoryInput: `{
		"type": "object",
		"properties": {
			"placeholder": {"type": "string"},
			"help_text": {"type": "string"},
			"default_value": {},
			"options": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"label": {"type": "string"},
						"value": {}
					},
					"required": ["label"]
				}
			},
			"min": {"type": "number"},
			"max": {"type": "number"},
			"max_length": {"type": "integer", "minimum": 0},
			"accept": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	models.ElementCategoryContent: `{
		"type": "object",
		"properties": {
			"text": {"type": "string"},
			"level": {"type": "integer", "minimum": 1, "maximum": 6},
			"url": {"type": "string"},
			"alt_text": {"type": "string"},
			"links": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"label": {"type": "string"},
						"url": {"type": "string"}
					},
					"required": ["url"]
				}
			}
		}
	}`,
	models.ElementCategoryIntegration: `{
		"type": "object",
		"properties": {
			"provider": {"type": "string"},
			"resource_id": {"type": "string"},
			"settings": {"type": "object"}
		},
		"required": ["provider"]
	}`,
	models.ElementCategoryControl: `{
		"type": "object",
		"properties": {
			"label": {"type": "string"},
			"target_step_id": {"type": "string"},
			"condition": {"type": "object"}
		}
	}`,
}

// Element manages element rows under a step. Element ordering uses the same
// max+1 read as the other levels; orders derived from wall-clock timestamps
// collide under rapid creation.
type Element struct {
	persistence persistence.Persistence
	guard       *Guard
	toucher     *Toucher
}

// NewElement creates an element service.
func NewElement(persistence persistence.Persistence, guard *Guard, toucher *Toucher) *Element {
	return &Element{persistence: persistence, guard: guard, toucher: toucher}
}

// CreateElementRequest carries the fields accepted when creating an element.
type CreateElementRequest struct {
	Type          models.ElementType
	Key           string
	Label         string
	Required      bool
	ClientVisible bool
	Config        map[string]any
}

// ElementPatch applies partial-update semantics. Type and Key are immutable
// once created; submitted step data is stored under the key.
type ElementPatch struct {
	Label         *string
	ElementOrder  *int
	Required      *bool
	ClientVisible *bool
	Config        map[string]any
}

func validateElementConfig(elementType models.ElementType, config map[string]any) error {
	if config == nil {
		return nil
	}

	schema, ok := elementConfigSchemas[elementType.Category()]
	if !ok {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate element config: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError("validateElementConfig", "INVALID_ELEMENT_CONFIG",
			strings.Join(details, "; "), ErrInvalidElementConfig)
	}

	return nil
}

// Create validates the parent step, authorizes the actor, assigns the next
// element order, and persists the element.
func (e *Element) Create(ctx context.Context, stepID string, req CreateElementRequest, actor string) (*models.Element, error) {
	step, err := e.persistence.Steps().GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if step == nil {
		return nil, persistence.ErrStepNotFound
	}

	template, err := e.guard.TemplateForStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if err := e.guard.Authorize(ctx, template, actor); err != nil {
		return nil, err
	}

	if !req.Type.Valid() {
		return nil, NewValidationError("Element.Create", "INVALID_ELEMENT_TYPE",
			fmt.Sprintf("unknown element type %q", req.Type), ErrInvalidElementType)
	}

	if strings.TrimSpace(req.Key) == "" {
		return nil, ErrElementKeyRequired
	}

	if err := validateElementConfig(req.Type, req.Config); err != nil {
		return nil, err
	}

	order, err := nextOrder(ctx, e.persistence.Elements().MaxOrder, stepID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	element := &models.Element{
		ID:            uuid.New().String(),
		StepID:        stepID,
		Type:          req.Type,
		Key:           req.Key,
		Label:         req.Label,
		ElementOrder:  order,
		Required:      req.Required,
		ClientVisible: req.ClientVisible,
		Config:        req.Config,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.persistence.Elements().Save(ctx, element); err != nil {
		return nil, fmt.Errorf("failed to create element: %w", err)
	}

	e.toucher.Touch(ctx, template.ID, actor)

	return element, nil
}

// Update applies a partial update to an element.
func (e *Element) Update(ctx context.Context, id string, patch ElementPatch, actor string) (*models.Element, error) {
	element, err := e.persistence.Elements().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if element == nil {
		return nil, persistence.ErrElementNotFound
	}

	template, err := e.guard.TemplateForElement(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := e.guard.Authorize(ctx, template, actor); err != nil {
		return nil, err
	}

	if patch.Label != nil {
		element.Label = *patch.Label
	}

	if patch.ElementOrder != nil {
		element.ElementOrder = *patch.ElementOrder
	}

	if patch.Required != nil {
		element.Required = *patch.Required
	}

	if patch.ClientVisible != nil {
		element.ClientVisible = *patch.ClientVisible
	}

	if patch.Config != nil {
		if err := validateElementConfig(element.Type, patch.Config); err != nil {
			return nil, err
		}

		element.Config = patch.Config
	}

	element.UpdatedAt = time.Now().UTC()

	if err := e.persistence.Elements().Save(ctx, element); err != nil {
		return nil, fmt.Errorf("failed to update element: %w", err)
	}

	e.toucher.Touch(ctx, template.ID, actor)

	return element, nil
}

// Delete removes an element, subject to the active-instance check.
func (e *Element) Delete(ctx context.Context, id, actor string) error {
	template, err := e.guard.TemplateForElement(ctx, id)
	if err != nil {
		return err
	}

	if err := e.guard.Authorize(ctx, template, actor); err != nil {
		return err
	}

	active, err := e.persistence.Instances().CountActive(ctx, template.ID)
	if err != nil {
		return fmt.Errorf("failed to count active instances: %w", err)
	}

	if active > 0 {
		return ErrActiveInstances
	}

	if err := e.persistence.Elements().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete element: %w", err)
	}

	e.toucher.Touch(ctx, template.ID, actor)

	return nil
}
