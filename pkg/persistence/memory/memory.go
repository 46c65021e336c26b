// Package memory provides an in-memory persistence implementation. It mirrors
// the semantics of the SQL implementation, including cascading deletes, and
// backs service tests and local development.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// Persistence implements persistence.Persistence over process-local maps.
type Persistence struct {
	mu sync.RWMutex

	templates map[string]*models.Template
	stages    map[string]*models.Stage
	tasks     map[string]*models.Task
	steps     map[string]*models.Step
	elements  map[string]*models.Element
	instances map[string]*models.Instance
	stepData  map[string]*models.StepData // keyed by instance|step|element key
	roles     map[string][]models.Role

	closed bool
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		templates: make(map[string]*models.Template),
		stages:    make(map[string]*models.Stage),
		tasks:     make(map[string]*models.Task),
		steps:     make(map[string]*models.Step),
		elements:  make(map[string]*models.Element),
		instances: make(map[string]*models.Instance),
		stepData:  make(map[string]*models.StepData),
		roles:     make(map[string][]models.Role),
	}
}

func (p *Persistence) Templates() persistence.TemplateRepository { return &templateRepository{p} }
func (p *Persistence) Stages() persistence.StageRepository       { return &stageRepository{p} }
func (p *Persistence) Tasks() persistence.TaskRepository         { return &taskRepository{p} }
func (p *Persistence) Steps() persistence.StepRepository         { return &stepRepository{p} }
func (p *Persistence) Elements() persistence.ElementRepository   { return &elementRepository{p} }
func (p *Persistence) Instances() persistence.InstanceRepository { return &instanceRepository{p} }
func (p *Persistence) StepData() persistence.StepDataRepository  { return &stepDataRepository{p} }
func (p *Persistence) Roles() persistence.RoleRepository         { return &roleRepository{p} }

func (p *Persistence) HealthCheck(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return persistence.NewRepositoryError("HealthCheck", "memory", "", context.Canceled)
	}

	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	return nil
}

// GrantRole records a role assignment. Test seeding helper; the role table is
// written by the identity system in production.
func (p *Persistence) GrantRole(userID, role string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.roles[userID] = append(p.roles[userID], models.Role{UserID: userID, Name: role})
}

// clone deep-copies a row through JSON so callers never alias stored state.
func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}

	return out
}

func stepDataKey(instanceID, stepID, elementKey string) string {
	return instanceID + "|" + stepID + "|" + elementKey
}
