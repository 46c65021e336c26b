// Package models defines the core domain models for process template management.
package models

import "time"

// TemplateType classifies how a template's stages are traversed.
type TemplateType string

const (
	TemplateTypeStandard  TemplateType = "standard"   // Linear stage-by-stage execution
	TemplateTypeFlowBased TemplateType = "flow_based" // Condition-driven stage selection
	TemplateTypeHybrid    TemplateType = "hybrid"     // Linear with conditional branches
)

// Template is a reusable, versioned definition of a multi-stage process.
// It owns an ordered list of stages; every structural mutation beneath it
// touches its UpdatedAt/UpdatedBy audit fields.
type Template struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"                        validate:"required,min=1"`
	Description              string       `json:"description"`
	Type                     TemplateType `json:"template_type"               validate:"required,oneof=standard flow_based hybrid"`
	IsActive                 bool         `json:"is_active"`
	IsPublished              bool         `json:"is_published"`
	Version                  int          `json:"version"`
	Icon                     string       `json:"icon,omitempty"`
	Color                    string       `json:"color,omitempty"             validate:"omitempty,hexcolor"`
	Category                 string       `json:"category,omitempty"`
	Tags                     []string     `json:"tags,omitempty"`
	RequiresProductsServices bool         `json:"requires_products_services"`
	AutoCreateProject        bool         `json:"auto_create_project"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes"`
	ClientVisible            bool         `json:"client_visible"`
	ClientDescription        string       `json:"client_description,omitempty"`
	CreatedBy                string       `json:"created_by"`
	UpdatedBy                string       `json:"updated_by,omitempty"`
	CreatedAt                time.Time    `json:"created_at"`
	UpdatedAt                time.Time    `json:"updated_at"`
	DeletedAt                *time.Time   `json:"deleted_at,omitempty"`
	Stages                   []*Stage     `json:"stages,omitempty"`
}
