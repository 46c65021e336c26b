package models

import "time"

// Task is a unit of work inside a stage. DependsOnTaskIDs references sibling
// tasks of the same template; dependency graphs are validated for dangling
// references and cycles at write time.
type Task struct {
	ID                       string    `json:"id"`
	StageID                  string    `json:"stage_id"   validate:"required"`
	Name                     string    `json:"name"       validate:"required,min=1"`
	Description              string    `json:"description"`
	TaskOrder                int       `json:"task_order"`
	AssignedTo               string    `json:"assigned_to,omitempty"`
	EstimatedDurationMinutes int       `json:"estimated_duration_minutes"`
	DueOffsetDays            int       `json:"due_offset_days"`
	DependsOnTaskIDs         []string  `json:"depends_on_task_ids,omitempty"`
	ClientVisible            bool      `json:"client_visible"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
	Steps                    []*Step   `json:"steps,omitempty"`
}
