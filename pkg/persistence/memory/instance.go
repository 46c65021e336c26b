package memory

import (
	"context"
	"sort"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
)

type instanceRepository struct{ p *Persistence }

func (r *instanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	instance, ok := r.p.instances[id]
	if !ok {
		return nil, nil
	}

	return clone(instance), nil
}

func (r *instanceRepository) ListByTemplateID(ctx context.Context, templateID string) ([]*models.Instance, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Instance, 0)

	for _, instance := range r.p.instances {
		if instance.TemplateID == templateID {
			matched = append(matched, clone(instance))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

func (r *instanceRepository) CountActive(ctx context.Context, templateID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, instance := range r.p.instances {
		if instance.TemplateID == templateID &&
			instance.Status != models.InstanceStatusDraft &&
			instance.Status != models.InstanceStatusCompleted {
			count++
		}
	}

	return count, nil
}

func (r *instanceRepository) CountCreatedBetween(ctx context.Context, templateID string, from, to time.Time) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, instance := range r.p.instances {
		if instance.TemplateID != templateID {
			continue
		}

		if !instance.CreatedAt.Before(from) && instance.CreatedAt.Before(to) {
			count++
		}
	}

	return count, nil
}

func (r *instanceRepository) CountCompletedBetween(ctx context.Context, templateID string, from, to time.Time) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, instance := range r.p.instances {
		if instance.TemplateID != templateID || instance.CompletedAt == nil {
			continue
		}

		if !instance.CompletedAt.Before(from) && instance.CompletedAt.Before(to) {
			count++
		}
	}

	return count, nil
}

func (r *instanceRepository) Save(ctx context.Context, instance *models.Instance) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.instances[instance.ID] = clone(instance)

	return nil
}

func (r *instanceRepository) DeleteDraftsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	removed := 0

	for id, instance := range r.p.instances {
		if instance.Status != models.InstanceStatusDraft || !instance.CreatedAt.Before(cutoff) {
			continue
		}

		delete(r.p.instances, id)

		for key, data := range r.p.stepData {
			if data.InstanceID == id {
				delete(r.p.stepData, key)
			}
		}

		removed++
	}

	return removed, nil
}

type stepDataRepository struct{ p *Persistence }

func (r *stepDataRepository) Upsert(ctx context.Context, data *models.StepData) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	key := stepDataKey(data.InstanceID, data.StepID, data.ElementKey)

	if existing, ok := r.p.stepData[key]; ok {
		data.ID = existing.ID
	}

	r.p.stepData[key] = clone(data)

	return nil
}

func (r *stepDataRepository) ListByInstanceID(ctx context.Context, instanceID string) ([]*models.StepData, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.StepData, 0)

	for _, data := range r.p.stepData {
		if data.InstanceID == instanceID {
			matched = append(matched, clone(data))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.Before(matched[j].SubmittedAt)
	})

	return matched, nil
}

func (r *stepDataRepository) ListByInstanceAndStep(ctx context.Context, instanceID, stepID string) ([]*models.StepData, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.StepData, 0)

	for _, data := range r.p.stepData {
		if data.InstanceID == instanceID && data.StepID == stepID {
			matched = append(matched, clone(data))
		}
	}

	return matched, nil
}

type roleRepository struct{ p *Persistence }

func (r *roleRepository) GetRoles(ctx context.Context, userID string) ([]models.Role, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	roles := make([]models.Role, len(r.p.roles[userID]))
	copy(roles, r.p.roles[userID])

	return roles, nil
}
