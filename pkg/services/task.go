package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/google/uuid"
)

// Task manages task rows under a stage, including dependency validation.
type Task struct {
	persistence persistence.Persistence
	guard       *Guard
	toucher     *Toucher
}

// NewTask creates a task service.
func NewTask(persistence persistence.Persistence, guard *Guard, toucher *Toucher) *Task {
	return &Task{persistence: persistence, guard: guard, toucher: toucher}
}

// CreateTaskRequest carries the fields accepted when creating a task.
type CreateTaskRequest struct {
	Name                     string
	Description              string
	AssignedTo               string
	EstimatedDurationMinutes int
	DueOffsetDays            int
	DependsOnTaskIDs         []string
	ClientVisible            bool
}

// TaskPatch applies partial-update semantics. A non-nil DependsOnTaskIDs
// replaces the dependency list wholesale.
type TaskPatch struct {
	Name                     *string
	Description              *string
	TaskOrder                *int
	AssignedTo               *string
	EstimatedDurationMinutes *int
	DueOffsetDays            *int
	DependsOnTaskIDs         []string
	ClientVisible            *bool
}

// Create validates the parent stage, authorizes the actor, validates the
// dependency list, assigns the next task order, and persists the task.
func (t *Task) Create(ctx context.Context, stageID string, req CreateTaskRequest, actor string) (*models.Task, error) {
	stage, err := t.persistence.Stages().GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if stage == nil {
		return nil, persistence.ErrStageNotFound
	}

	template, err := t.guard.TemplateForStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if err := t.guard.Authorize(ctx, template, actor); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	taskID := uuid.New().String()

	if err := t.validateDependencies(ctx, template.ID, taskID, req.DependsOnTaskIDs); err != nil {
		return nil, err
	}

	order, err := nextOrder(ctx, t.persistence.Tasks().MaxOrder, stageID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:                       taskID,
		StageID:                  stageID,
		Name:                     req.Name,
		Description:              req.Description,
		TaskOrder:                order,
		AssignedTo:               req.AssignedTo,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		DueOffsetDays:            req.DueOffsetDays,
		DependsOnTaskIDs:         req.DependsOnTaskIDs,
		ClientVisible:            req.ClientVisible,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := t.persistence.Tasks().Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	t.toucher.Touch(ctx, template.ID, actor)

	return task, nil
}

// Update applies a partial update to a task.
func (t *Task) Update(ctx context.Context, id string, patch TaskPatch, actor string) (*models.Task, error) {
	task, err := t.persistence.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task == nil {
		return nil, persistence.ErrTaskNotFound
	}

	template, err := t.guard.TemplateForTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := t.guard.Authorize(ctx, template, actor); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, ErrNameRequired
		}

		task.Name = *patch.Name
	}

	if patch.Description != nil {
		task.Description = *patch.Description
	}

	if patch.TaskOrder != nil {
		task.TaskOrder = *patch.TaskOrder
	}

	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}

	if patch.EstimatedDurationMinutes != nil {
		task.EstimatedDurationMinutes = *patch.EstimatedDurationMinutes
	}

	if patch.DueOffsetDays != nil {
		task.DueOffsetDays = *patch.DueOffsetDays
	}

	if patch.DependsOnTaskIDs != nil {
		if err := t.validateDependencies(ctx, template.ID, id, patch.DependsOnTaskIDs); err != nil {
			return nil, err
		}

		task.DependsOnTaskIDs = patch.DependsOnTaskIDs
	}

	if patch.ClientVisible != nil {
		task.ClientVisible = *patch.ClientVisible
	}

	task.UpdatedAt = time.Now().UTC()

	if err := t.persistence.Tasks().Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	t.toucher.Touch(ctx, template.ID, actor)

	return task, nil
}

// Delete removes a task and its steps and elements via store-level cascade,
// subject to the active-instance check.
func (t *Task) Delete(ctx context.Context, id, actor string) error {
	template, err := t.guard.TemplateForTask(ctx, id)
	if err != nil {
		return err
	}

	if err := t.guard.Authorize(ctx, template, actor); err != nil {
		return err
	}

	active, err := t.persistence.Instances().CountActive(ctx, template.ID)
	if err != nil {
		return fmt.Errorf("failed to count active instances: %w", err)
	}

	if active > 0 {
		return ErrActiveInstances
	}

	if err := t.persistence.Tasks().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	t.toucher.Touch(ctx, template.ID, actor)

	return nil
}

// validateDependencies checks that every referenced task exists within the
// template and that the resulting dependency graph is acyclic. The graph is
// checked with an index-based topological sort over all tasks of the
// template, with taskID's edge list replaced by deps.
func (t *Task) validateDependencies(ctx context.Context, templateID, taskID string, deps []string) error {
	if len(deps) == 0 {
		return nil
	}

	stages, err := t.persistence.Stages().ListByTemplateID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("failed to list stages for dependency check: %w", err)
	}

	stageIDs := make([]string, 0, len(stages))
	for _, stage := range stages {
		stageIDs = append(stageIDs, stage.ID)
	}

	tasks := make([]*models.Task, 0)
	if len(stageIDs) > 0 {
		tasks, err = t.persistence.Tasks().ListByStageIDs(ctx, stageIDs)
		if err != nil {
			return fmt.Errorf("failed to list tasks for dependency check: %w", err)
		}
	}

	index := make(map[string]int, len(tasks)+1)
	depLists := make([][]string, 0, len(tasks)+1)
	seen := false

	for _, task := range tasks {
		index[task.ID] = len(depLists)

		if task.ID == taskID {
			depLists = append(depLists, deps)
			seen = true
		} else {
			depLists = append(depLists, task.DependsOnTaskIDs)
		}
	}

	if !seen {
		index[taskID] = len(depLists)
		depLists = append(depLists, deps)
	}

	for _, dep := range deps {
		if _, ok := index[dep]; !ok || dep == taskID {
			if dep == taskID {
				return NewValidationError("Task.validateDependencies", "DEPENDENCY_CYCLE",
					"task cannot depend on itself", ErrDependencyCycle)
			}

			return NewValidationError("Task.validateDependencies", "UNKNOWN_DEPENDENCY",
				fmt.Sprintf("task %s is not part of this template", dep), ErrUnknownDependency)
		}
	}

	// Kahn's algorithm over the index-based edge lists. Edges outside the
	// template (legacy rows) are ignored.
	indegree := make([]int, len(depLists))

	for _, list := range depLists {
		for _, dep := range list {
			if at, ok := index[dep]; ok {
				indegree[at]++
			}
		}
	}

	queue := make([]int, 0, len(depLists))

	for i, degree := range indegree {
		if degree == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++

		for _, dep := range depLists[node] {
			at, ok := index[dep]
			if !ok {
				continue
			}

			indegree[at]--
			if indegree[at] == 0 {
				queue = append(queue, at)
			}
		}
	}

	if visited != len(depLists) {
		return NewValidationError("Task.validateDependencies", "DEPENDENCY_CYCLE",
			"task dependency graph contains a cycle", ErrDependencyCycle)
	}

	return nil
}
