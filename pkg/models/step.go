package models

import "time"

// Step is the unit an instance walks through and submits data against. Only
// client-visible steps count toward instance progress.
type Step struct {
	ID                  string           `json:"id"`
	TaskID              string           `json:"task_id" validate:"required"`
	Name                string           `json:"name"    validate:"required,min=1"`
	Description         string           `json:"description"`
	StepOrder           int              `json:"step_order"`
	AllowSkip           bool             `json:"allow_skip"`
	AutoAdvance         bool             `json:"auto_advance"`
	ShowProgress        bool             `json:"show_progress"`
	AllowBackNavigation bool             `json:"allow_back_navigation"`
	SaveProgress        bool             `json:"save_progress"`
	ValidationRules     []ValidationRule `json:"validation_rules,omitempty"`
	Condition           *Condition       `json:"condition,omitempty"`
	ClientVisible       bool             `json:"client_visible"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	Elements            []*Element       `json:"elements,omitempty"`
}

// ValidationRule declares a field-level constraint on data submitted for a
// step. Rules are stored with the step; enforcement happens in a separate
// validator outside this core.
type ValidationRule struct {
	Type    string `json:"type"              validate:"required"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}
