package models

import "time"

// InstanceStatus represents the lifecycle state of an instance. Transitions
// are monotonic: draft -> active -> completed. The set is open; unknown
// statuses are stored as given but cannot leave the completed state.
type InstanceStatus string

const (
	InstanceStatusDraft     InstanceStatus = "draft"
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusCompleted InstanceStatus = "completed"
)

// Instance is one concrete, trackable execution of a published template.
type Instance struct {
	ID                   string         `json:"id"`
	TemplateID           string         `json:"template_id" validate:"required"`
	Status               InstanceStatus `json:"status"`
	CompletionPercentage int            `json:"completion_percentage"`
	CurrentStageID       *string        `json:"current_stage_id,omitempty"`
	CurrentTaskID        *string        `json:"current_task_id,omitempty"`
	CurrentStepID        *string        `json:"current_step_id,omitempty"`
	ProjectID            *string        `json:"project_id,omitempty"`
	ClientID             *string        `json:"client_id,omitempty"`
	StartedAt            *time.Time     `json:"started_at,omitempty"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
	Data                 map[string]any `json:"instance_data,omitempty"`
	CreatedBy            string         `json:"created_by"`
	UpdatedBy            string         `json:"updated_by,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// StepData is the value a user submitted for one element within one step
// during one instance. Rows are upserted, keyed by (instance, step, element
// key), so resubmission replaces the prior value.
type StepData struct {
	ID          string    `json:"id"`
	InstanceID  string    `json:"instance_id" validate:"required"`
	StepID      string    `json:"step_id"     validate:"required"`
	ElementKey  string    `json:"element_key" validate:"required"`
	Value       any       `json:"element_value"`
	DataType    string    `json:"data_type"`
	IsValid     bool      `json:"is_valid"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Role is an access role granted to a user, consulted by the permission
// guard. Admin-tier roles may mutate any template.
type Role struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
}

// Admin-tier role names.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// IsAdminTier reports whether the role grants admin privileges.
func (r Role) IsAdminTier() bool {
	return r.Name == RoleAdmin || r.Name == RoleSuperAdmin
}
