package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// Progress recomputes instance completion from recorded step data. Only
// client-visible steps count. Submitted rows for the instance are fetched
// once and checked against an in-memory set, avoiding a per-step query
// fan-out.
type Progress struct {
	persistence persistence.Persistence
	loader      *Loader
	logger      *slog.Logger
}

// NewProgress creates a progress calculator.
func NewProgress(persistence persistence.Persistence, loader *Loader, logger *slog.Logger) *Progress {
	return &Progress{persistence: persistence, loader: loader, logger: logger}
}

// StepProgress reports completion of one client-visible step.
type StepProgress struct {
	StepID   string `json:"step_id"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
}

// TaskProgress reports a task and its steps. A task is complete only when
// every client-visible step beneath it has data.
type TaskProgress struct {
	TaskID   string         `json:"task_id"`
	Name     string         `json:"name"`
	Complete bool           `json:"complete"`
	Steps    []StepProgress `json:"steps"`
}

// StageProgress reports a stage and its tasks. A stage is complete only when
// every task beneath it is complete.
type StageProgress struct {
	StageID  string         `json:"stage_id"`
	Name     string         `json:"name"`
	Complete bool           `json:"complete"`
	Tasks    []TaskProgress `json:"tasks"`
}

// ProgressDetails is the rolled-up completion summary for an instance.
type ProgressDetails struct {
	InstanceID      string          `json:"instance_id"`
	TotalStages     int             `json:"total_stages"`
	CompletedStages int             `json:"completed_stages"`
	TotalTasks      int             `json:"total_tasks"`
	CompletedTasks  int             `json:"completed_tasks"`
	TotalSteps      int             `json:"total_steps"`
	CompletedSteps  int             `json:"completed_steps"`
	Percentage      int             `json:"completion_percentage"`
	Stages          []StageProgress `json:"stages"`
}

// Recompute walks the instance's template tree against its recorded step
// data, writes the resulting percentage back to the instance, and returns
// the updated instance.
func (p *Progress) Recompute(ctx context.Context, instanceID string) (*models.Instance, error) {
	instance, err := p.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if instance == nil {
		return nil, persistence.ErrInstanceNotFound
	}

	tree, err := p.loader.Load(ctx, instance.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template for progress: %w", err)
	}

	if tree == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	submitted, err := p.submittedSteps(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	totalSteps, completedSteps := 0, 0

	for _, stage := range tree.Template.Stages {
		for _, task := range stage.Tasks {
			for _, step := range task.Steps {
				if !step.ClientVisible {
					continue
				}

				totalSteps++

				if submitted[step.ID] {
					completedSteps++
				}
			}
		}
	}

	instance.CompletionPercentage = percentage(completedSteps, totalSteps)
	instance.UpdatedAt = time.Now().UTC()

	if err := p.persistence.Instances().Save(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to save recomputed progress: %w", err)
	}

	return instance, nil
}

// Details returns the per-stage/per-task/per-step rollup without mutating
// the instance.
func (p *Progress) Details(ctx context.Context, instanceID string) (*ProgressDetails, error) {
	instance, err := p.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if instance == nil {
		return nil, persistence.ErrInstanceNotFound
	}

	tree, err := p.loader.Load(ctx, instance.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template for progress details: %w", err)
	}

	if tree == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	submitted, err := p.submittedSteps(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	details := &ProgressDetails{
		InstanceID: instanceID,
		Stages:     make([]StageProgress, 0, len(tree.Template.Stages)),
	}

	for _, stage := range tree.Template.Stages {
		stageProgress := StageProgress{
			StageID:  stage.ID,
			Name:     stage.Name,
			Complete: true,
			Tasks:    make([]TaskProgress, 0, len(stage.Tasks)),
		}

		details.TotalStages++

		for _, task := range stage.Tasks {
			taskProgress := TaskProgress{
				TaskID:   task.ID,
				Name:     task.Name,
				Complete: true,
				Steps:    make([]StepProgress, 0, len(task.Steps)),
			}

			details.TotalTasks++

			for _, step := range task.Steps {
				if !step.ClientVisible {
					continue
				}

				complete := submitted[step.ID]

				details.TotalSteps++
				if complete {
					details.CompletedSteps++
				} else {
					taskProgress.Complete = false
				}

				taskProgress.Steps = append(taskProgress.Steps, StepProgress{
					StepID:   step.ID,
					Name:     step.Name,
					Complete: complete,
				})
			}

			if taskProgress.Complete {
				details.CompletedTasks++
			} else {
				stageProgress.Complete = false
			}

			stageProgress.Tasks = append(stageProgress.Tasks, taskProgress)
		}

		if stageProgress.Complete {
			details.CompletedStages++
		}

		details.Stages = append(details.Stages, stageProgress)
	}

	details.Percentage = percentage(details.CompletedSteps, details.TotalSteps)

	return details, nil
}

func (p *Progress) submittedSteps(ctx context.Context, instanceID string) (map[string]bool, error) {
	rows, err := p.persistence.StepData().ListByInstanceID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step data: %w", err)
	}

	submitted := make(map[string]bool, len(rows))
	for _, row := range rows {
		submitted[row.StepID] = true
	}

	return submitted, nil
}

func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}

	return int(math.Round(100 * float64(completed) / float64(total)))
}
