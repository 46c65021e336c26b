// Package persistence provides the data storage abstraction for templates,
// their stage/task/step/element hierarchy, and execution instances.
package persistence

import (
	"context"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
)

// TemplateFilters narrows template listings. Zero values mean "no filter".
type TemplateFilters struct {
	Type        *models.TemplateType
	IsActive    *bool
	IsPublished *bool
	CreatedBy   string
	Category    string
	Tags        []string
}

// Persistence is the storage root. Implementations must cascade deletes from
// a parent row to all descendant rows (stage -> tasks -> steps -> elements).
type Persistence interface {
	Templates() TemplateRepository
	Stages() StageRepository
	Tasks() TaskRepository
	Steps() StepRepository
	Elements() ElementRepository
	Instances() InstanceRepository
	StepData() StepDataRepository
	Roles() RoleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// TemplateRepository stores template rows. GetByID returns (nil, nil) when
// the template does not exist or is soft-deleted.
type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.Template, error)
	List(ctx context.Context, filters TemplateFilters) ([]*models.Template, error)
	Save(ctx context.Context, template *models.Template) error
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Template, error)
	HardDelete(ctx context.Context, id string) error
}

type StageRepository interface {
	GetByID(ctx context.Context, id string) (*models.Stage, error)
	ListByTemplateID(ctx context.Context, templateID string) ([]*models.Stage, error)
	MaxOrder(ctx context.Context, templateID string) (int, error)
	Save(ctx context.Context, stage *models.Stage) error
	Delete(ctx context.Context, id string) error
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByStageID(ctx context.Context, stageID string) ([]*models.Task, error)
	ListByStageIDs(ctx context.Context, stageIDs []string) ([]*models.Task, error)
	MaxOrder(ctx context.Context, stageID string) (int, error)
	Save(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}

type StepRepository interface {
	GetByID(ctx context.Context, id string) (*models.Step, error)
	ListByTaskID(ctx context.Context, taskID string) ([]*models.Step, error)
	ListByTaskIDs(ctx context.Context, taskIDs []string) ([]*models.Step, error)
	MaxOrder(ctx context.Context, taskID string) (int, error)
	Save(ctx context.Context, step *models.Step) error
	Delete(ctx context.Context, id string) error
}

type ElementRepository interface {
	GetByID(ctx context.Context, id string) (*models.Element, error)
	ListByStepID(ctx context.Context, stepID string) ([]*models.Element, error)
	ListByStepIDs(ctx context.Context, stepIDs []string) ([]*models.Element, error)
	MaxOrder(ctx context.Context, stepID string) (int, error)
	Save(ctx context.Context, element *models.Element) error
	Delete(ctx context.Context, id string) error
}

type InstanceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Instance, error)
	ListByTemplateID(ctx context.Context, templateID string) ([]*models.Instance, error)
	CountActive(ctx context.Context, templateID string) (int, error)
	CountCreatedBetween(ctx context.Context, templateID string, from, to time.Time) (int, error)
	CountCompletedBetween(ctx context.Context, templateID string, from, to time.Time) (int, error)
	Save(ctx context.Context, instance *models.Instance) error
	DeleteDraftsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// StepDataRepository stores submitted step data. Upsert replaces any prior
// row for the same (instance, step, element key) triple.
type StepDataRepository interface {
	Upsert(ctx context.Context, data *models.StepData) error
	ListByInstanceID(ctx context.Context, instanceID string) ([]*models.StepData, error)
	ListByInstanceAndStep(ctx context.Context, instanceID, stepID string) ([]*models.StepData, error)
}

// RoleRepository looks up access roles, consumed only by the permission
// guard.
type RoleRepository interface {
	GetRoles(ctx context.Context, userID string) ([]models.Role, error)
}
