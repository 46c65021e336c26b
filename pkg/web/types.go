// Package web provides HTTP request and response types for the template API.
package web

import (
	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/services"
)

// CreateTemplateRequest represents the request body for creating a template.
type CreateTemplateRequest struct {
	Name                     string              `json:"name"                        validate:"required,min=1"`
	Description              string              `json:"description"`
	Type                     models.TemplateType `json:"template_type"               validate:"required,oneof=standard flow_based hybrid"`
	Icon                     string              `json:"icon"`
	Color                    string              `json:"color"                       validate:"omitempty,len=7"`
	Category                 string              `json:"category"`
	Tags                     []string            `json:"tags"`
	RequiresProductsServices bool                `json:"requires_products_services"`
	AutoCreateProject        bool                `json:"auto_create_project"`
	EstimatedDurationMinutes int                 `json:"estimated_duration_minutes"  validate:"min=0"`
	ClientVisible            bool                `json:"client_visible"`
	ClientDescription        string              `json:"client_description"`
	CreatedBy                string              `json:"created_by"                  validate:"required"`
}

func (r CreateTemplateRequest) toService() services.CreateTemplateRequest {
	return services.CreateTemplateRequest{
		Name:                     r.Name,
		Description:              r.Description,
		Type:                     r.Type,
		Icon:                     r.Icon,
		Color:                    r.Color,
		Category:                 r.Category,
		Tags:                     r.Tags,
		RequiresProductsServices: r.RequiresProductsServices,
		AutoCreateProject:        r.AutoCreateProject,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		ClientVisible:            r.ClientVisible,
		ClientDescription:        r.ClientDescription,
		CreatedBy:                r.CreatedBy,
	}
}

// UpdateTemplateRequest represents a partial template update. Absent fields
// are left untouched.
type UpdateTemplateRequest struct {
	Name                     *string              `json:"name,omitempty"          validate:"omitempty,min=1"`
	Description              *string              `json:"description,omitempty"`
	Type                     *models.TemplateType `json:"template_type,omitempty" validate:"omitempty,oneof=standard flow_based hybrid"`
	Icon                     *string              `json:"icon,omitempty"`
	Color                    *string              `json:"color,omitempty"`
	Category                 *string              `json:"category,omitempty"`
	Tags                     []string             `json:"tags,omitempty"`
	IsActive                 *bool                `json:"is_active,omitempty"`
	RequiresProductsServices *bool                `json:"requires_products_services,omitempty"`
	AutoCreateProject        *bool                `json:"auto_create_project,omitempty"`
	EstimatedDurationMinutes *int                 `json:"estimated_duration_minutes,omitempty"`
	ClientVisible            *bool                `json:"client_visible,omitempty"`
	ClientDescription        *string              `json:"client_description,omitempty"`
	UpdatedBy                string               `json:"updated_by"              validate:"required"`
}

func (r UpdateTemplateRequest) toService() services.TemplatePatch {
	return services.TemplatePatch{
		Name:                     r.Name,
		Description:              r.Description,
		Type:                     r.Type,
		Icon:                     r.Icon,
		Color:                    r.Color,
		Category:                 r.Category,
		Tags:                     r.Tags,
		IsActive:                 r.IsActive,
		RequiresProductsServices: r.RequiresProductsServices,
		AutoCreateProject:        r.AutoCreateProject,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		ClientVisible:            r.ClientVisible,
		ClientDescription:        r.ClientDescription,
	}
}

// CreateStageRequest represents the request body for creating a stage.
type CreateStageRequest struct {
	Name          string            `json:"name"           validate:"required,min=1"`
	Description   string            `json:"description"`
	IsRequired    bool              `json:"is_required"`
	AllowSkip     bool              `json:"allow_skip"`
	AutoAdvance   bool              `json:"auto_advance"`
	Condition     *models.Condition `json:"condition,omitempty"`
	ClientVisible bool              `json:"client_visible"`
	CreatedBy     string            `json:"created_by"     validate:"required"`
}

// UpdateStageRequest represents a partial stage update.
type UpdateStageRequest struct {
	Name          *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Description   *string           `json:"description,omitempty"`
	StageOrder    *int              `json:"stage_order,omitempty" validate:"omitempty,min=1"`
	IsRequired    *bool             `json:"is_required,omitempty"`
	AllowSkip     *bool             `json:"allow_skip,omitempty"`
	AutoAdvance   *bool             `json:"auto_advance,omitempty"`
	Condition     *models.Condition `json:"condition,omitempty"`
	ClientVisible *bool             `json:"client_visible,omitempty"`
	UpdatedBy     string            `json:"updated_by"     validate:"required"`
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Name                     string   `json:"name"        validate:"required,min=1"`
	Description              string   `json:"description"`
	AssignedTo               string   `json:"assigned_to"`
	EstimatedDurationMinutes int      `json:"estimated_duration_minutes" validate:"min=0"`
	DueOffsetDays            int      `json:"due_offset_days"`
	DependsOnTaskIDs         []string `json:"depends_on_task_ids"`
	ClientVisible            bool     `json:"client_visible"`
	CreatedBy                string   `json:"created_by"  validate:"required"`
}

// UpdateTaskRequest represents a partial task update.
type UpdateTaskRequest struct {
	Name                     *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Description              *string  `json:"description,omitempty"`
	TaskOrder                *int     `json:"task_order,omitempty" validate:"omitempty,min=1"`
	AssignedTo               *string  `json:"assigned_to,omitempty"`
	EstimatedDurationMinutes *int     `json:"estimated_duration_minutes,omitempty"`
	DueOffsetDays            *int     `json:"due_offset_days,omitempty"`
	DependsOnTaskIDs         []string `json:"depends_on_task_ids,omitempty"`
	ClientVisible            *bool    `json:"client_visible,omitempty"`
	UpdatedBy                string   `json:"updated_by"     validate:"required"`
}

// CreateStepRequest represents the request body for creating a step.
type CreateStepRequest struct {
	Name                string                  `json:"name" validate:"required,min=1"`
	Description         string                  `json:"description"`
	AllowSkip           bool                    `json:"allow_skip"`
	AutoAdvance         bool                    `json:"auto_advance"`
	ShowProgress        bool                    `json:"show_progress"`
	AllowBackNavigation bool                    `json:"allow_back_navigation"`
	SaveProgress        bool                    `json:"save_progress"`
	ValidationRules     []models.ValidationRule `json:"validation_rules,omitempty"`
	Condition           *models.Condition       `json:"condition,omitempty"`
	ClientVisible       bool                    `json:"client_visible"`
	CreatedBy           string                  `json:"created_by" validate:"required"`
}

// UpdateStepRequest represents a partial step update.
type UpdateStepRequest struct {
	Name                *string                 `json:"name,omitempty" validate:"omitempty,min=1"`
	Description         *string                 `json:"description,omitempty"`
	StepOrder           *int                    `json:"step_order,omitempty" validate:"omitempty,min=1"`
	AllowSkip           *bool                   `json:"allow_skip,omitempty"`
	AutoAdvance         *bool                   `json:"auto_advance,omitempty"`
	ShowProgress        *bool                   `json:"show_progress,omitempty"`
	AllowBackNavigation *bool                   `json:"allow_back_navigation,omitempty"`
	SaveProgress        *bool                   `json:"save_progress,omitempty"`
	ValidationRules     []models.ValidationRule `json:"validation_rules,omitempty"`
	Condition           *models.Condition       `json:"condition,omitempty"`
	ClientVisible       *bool                   `json:"client_visible,omitempty"`
	UpdatedBy           string                  `json:"updated_by"     validate:"required"`
}

// CreateElementRequest represents the request body for creating an element.
type CreateElementRequest struct {
	Type          models.ElementType `json:"element_type" validate:"required"`
	Key           string             `json:"element_key"  validate:"required,min=1"`
	Label         string             `json:"label"`
	Required      bool               `json:"required"`
	ClientVisible bool               `json:"client_visible"`
	Config        map[string]any     `json:"config,omitempty"`
	CreatedBy     string             `json:"created_by"   validate:"required"`
}

// UpdateElementRequest represents a partial element update. Type and key are
// immutable.
type UpdateElementRequest struct {
	Label         *string        `json:"label,omitempty"`
	ElementOrder  *int           `json:"element_order,omitempty" validate:"omitempty,min=1"`
	Required      *bool          `json:"required,omitempty"`
	ClientVisible *bool          `json:"client_visible,omitempty"`
	Config        map[string]any `json:"config,omitempty"`
	UpdatedBy     string         `json:"updated_by"              validate:"required"`
}

// CreateInstanceRequest represents the request body for starting an instance.
type CreateInstanceRequest struct {
	TemplateID string         `json:"template_id" validate:"required"`
	ProjectID  *string        `json:"project_id,omitempty"`
	ClientID   *string        `json:"client_id,omitempty"`
	Data       map[string]any `json:"instance_data,omitempty"`
	CreatedBy  string         `json:"created_by"  validate:"required"`
}

// ProgressUpdateRequest represents a partial instance progress update.
type ProgressUpdateRequest struct {
	CurrentStageID       *string                `json:"current_stage_id,omitempty"`
	CurrentTaskID        *string                `json:"current_task_id,omitempty"`
	CurrentStepID        *string                `json:"current_step_id,omitempty"`
	CompletionPercentage *int                   `json:"completion_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	Status               *models.InstanceStatus `json:"status,omitempty"`
	UpdatedBy            string                 `json:"updated_by" validate:"required"`
}

// StepDataSubmissionRequest represents one submitted element value.
type StepDataSubmissionRequest struct {
	ElementKey  string `json:"element_key"   validate:"required,min=1"`
	Value       any    `json:"element_value"`
	DataType    string `json:"data_type"`
	SubmittedBy string `json:"submitted_by"  validate:"required"`
}
