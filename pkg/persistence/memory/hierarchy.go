package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

type templateRepository struct{ p *Persistence }

func (r *templateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	template, ok := r.p.templates[id]
	if !ok || template.DeletedAt != nil {
		return nil, nil
	}

	return clone(template), nil
}

func (r *templateRepository) List(ctx context.Context, filters persistence.TemplateFilters) ([]*models.Template, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Template, 0)

	for _, template := range r.p.templates {
		if template.DeletedAt != nil {
			continue
		}

		if filters.Type != nil && template.Type != *filters.Type {
			continue
		}

		if filters.IsActive != nil && template.IsActive != *filters.IsActive {
			continue
		}

		if filters.IsPublished != nil && template.IsPublished != *filters.IsPublished {
			continue
		}

		if filters.CreatedBy != "" && template.CreatedBy != filters.CreatedBy {
			continue
		}

		if filters.Category != "" && template.Category != filters.Category {
			continue
		}

		if !containsAll(template.Tags, filters.Tags) {
			continue
		}

		matched = append(matched, clone(template))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched, nil
}

func containsAll(have, want []string) bool {
	for _, tag := range want {
		if !slices.Contains(have, tag) {
			return false
		}
	}

	return true
}

func (r *templateRepository) Save(ctx context.Context, template *models.Template) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored := clone(template)
	stored.Stages = nil // hierarchy rows live in their own collections

	r.p.templates[template.ID] = stored

	return nil
}

func (r *templateRepository) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Template, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Template, 0)

	for _, template := range r.p.templates {
		if template.DeletedAt != nil && template.DeletedAt.Before(cutoff) {
			matched = append(matched, clone(template))
		}
	}

	return matched, nil
}

func (r *templateRepository) HardDelete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.templates, id)

	for stageID, stage := range r.p.stages {
		if stage.TemplateID == id {
			r.p.cascadeDeleteStage(stageID)
		}
	}

	for instanceID, instance := range r.p.instances {
		if instance.TemplateID == id {
			delete(r.p.instances, instanceID)

			for key, data := range r.p.stepData {
				if data.InstanceID == instanceID {
					delete(r.p.stepData, key)
				}
			}
		}
	}

	return nil
}

type stageRepository struct{ p *Persistence }

func (r *stageRepository) GetByID(ctx context.Context, id string) (*models.Stage, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	stage, ok := r.p.stages[id]
	if !ok {
		return nil, nil
	}

	return clone(stage), nil
}

func (r *stageRepository) ListByTemplateID(ctx context.Context, templateID string) ([]*models.Stage, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Stage, 0)

	for _, stage := range r.p.stages {
		if stage.TemplateID == templateID {
			matched = append(matched, clone(stage))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StageOrder < matched[j].StageOrder
	})

	return matched, nil
}

func (r *stageRepository) MaxOrder(ctx context.Context, templateID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	maxOrder := 0

	for _, stage := range r.p.stages {
		if stage.TemplateID == templateID && stage.StageOrder > maxOrder {
			maxOrder = stage.StageOrder
		}
	}

	return maxOrder, nil
}

func (r *stageRepository) Save(ctx context.Context, stage *models.Stage) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored := clone(stage)
	stored.Tasks = nil

	r.p.stages[stage.ID] = stored

	return nil
}

func (r *stageRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.cascadeDeleteStage(id)

	return nil
}

// cascadeDeleteStage removes a stage and every descendant row. Callers hold
// the write lock.
func (p *Persistence) cascadeDeleteStage(id string) {
	delete(p.stages, id)

	for taskID, task := range p.tasks {
		if task.StageID == id {
			p.cascadeDeleteTask(taskID)
		}
	}
}

func (p *Persistence) cascadeDeleteTask(id string) {
	delete(p.tasks, id)

	for stepID, step := range p.steps {
		if step.TaskID == id {
			p.cascadeDeleteStep(stepID)
		}
	}
}

func (p *Persistence) cascadeDeleteStep(id string) {
	delete(p.steps, id)

	for elementID, element := range p.elements {
		if element.StepID == id {
			delete(p.elements, elementID)
		}
	}

	for key, data := range p.stepData {
		if data.StepID == id {
			delete(p.stepData, key)
		}
	}
}

type taskRepository struct{ p *Persistence }

func (r *taskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	task, ok := r.p.tasks[id]
	if !ok {
		return nil, nil
	}

	return clone(task), nil
}

func (r *taskRepository) ListByStageID(ctx context.Context, stageID string) ([]*models.Task, error) {
	return r.ListByStageIDs(ctx, []string{stageID})
}

func (r *taskRepository) ListByStageIDs(ctx context.Context, stageIDs []string) ([]*models.Task, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Task, 0)

	for _, task := range r.p.tasks {
		if slices.Contains(stageIDs, task.StageID) {
			matched = append(matched, clone(task))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].TaskOrder < matched[j].TaskOrder
	})

	return matched, nil
}

func (r *taskRepository) MaxOrder(ctx context.Context, stageID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	maxOrder := 0

	for _, task := range r.p.tasks {
		if task.StageID == stageID && task.TaskOrder > maxOrder {
			maxOrder = task.TaskOrder
		}
	}

	return maxOrder, nil
}

func (r *taskRepository) Save(ctx context.Context, task *models.Task) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored := clone(task)
	stored.Steps = nil

	r.p.tasks[task.ID] = stored

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.cascadeDeleteTask(id)

	return nil
}

type stepRepository struct{ p *Persistence }

func (r *stepRepository) GetByID(ctx context.Context, id string) (*models.Step, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	step, ok := r.p.steps[id]
	if !ok {
		return nil, nil
	}

	return clone(step), nil
}

func (r *stepRepository) ListByTaskID(ctx context.Context, taskID string) ([]*models.Step, error) {
	return r.ListByTaskIDs(ctx, []string{taskID})
}

func (r *stepRepository) ListByTaskIDs(ctx context.Context, taskIDs []string) ([]*models.Step, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Step, 0)

	for _, step := range r.p.steps {
		if slices.Contains(taskIDs, step.TaskID) {
			matched = append(matched, clone(step))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StepOrder < matched[j].StepOrder
	})

	return matched, nil
}

func (r *stepRepository) MaxOrder(ctx context.Context, taskID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	maxOrder := 0

	for _, step := range r.p.steps {
		if step.TaskID == taskID && step.StepOrder > maxOrder {
			maxOrder = step.StepOrder
		}
	}

	return maxOrder, nil
}

func (r *stepRepository) Save(ctx context.Context, step *models.Step) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored := clone(step)
	stored.Elements = nil

	r.p.steps[step.ID] = stored

	return nil
}

func (r *stepRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.cascadeDeleteStep(id)

	return nil
}

type elementRepository struct{ p *Persistence }

func (r *elementRepository) GetByID(ctx context.Context, id string) (*models.Element, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	element, ok := r.p.elements[id]
	if !ok {
		return nil, nil
	}

	return clone(element), nil
}

func (r *elementRepository) ListByStepID(ctx context.Context, stepID string) ([]*models.Element, error) {
	return r.ListByStepIDs(ctx, []string{stepID})
}

func (r *elementRepository) ListByStepIDs(ctx context.Context, stepIDs []string) ([]*models.Element, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Element, 0)

	for _, element := range r.p.elements {
		if slices.Contains(stepIDs, element.StepID) {
			matched = append(matched, clone(element))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ElementOrder < matched[j].ElementOrder
	})

	return matched, nil
}

func (r *elementRepository) MaxOrder(ctx context.Context, stepID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	maxOrder := 0

	for _, element := range r.p.elements {
		if element.StepID == stepID && element.ElementOrder > maxOrder {
			maxOrder = element.ElementOrder
		}
	}

	return maxOrder, nil
}

func (r *elementRepository) Save(ctx context.Context, element *models.Element) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.elements[element.ID] = clone(element)

	return nil
}

func (r *elementRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.elements, id)

	return nil
}
