package models

import "time"

// Stage is the top-level grouping inside a template. StageOrder positions it
// among its siblings; uniqueness is best-effort, not enforced by the store.
type Stage struct {
	ID            string     `json:"id"`
	TemplateID    string     `json:"template_id"    validate:"required"`
	Name          string     `json:"name"           validate:"required,min=1"`
	Description   string     `json:"description"`
	StageOrder    int        `json:"stage_order"`
	IsRequired    bool       `json:"is_required"`
	AllowSkip     bool       `json:"allow_skip"`
	AutoAdvance   bool       `json:"auto_advance"`
	Condition     *Condition `json:"condition,omitempty"`
	ClientVisible bool       `json:"client_visible"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Tasks         []*Task    `json:"tasks,omitempty"`
}
