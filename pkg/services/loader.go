package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// Element fetches are split into fixed-size batches once a template grows
// past elementBatchThreshold steps, to bound the size and latency of any
// single query against the store.
const (
	elementBatchThreshold = 20
	elementBatchSize      = 10
)

// TreeCache caches fully loaded template trees. Implementations must be safe
// for concurrent use.
type TreeCache interface {
	Get(ctx context.Context, templateID string) (*models.Template, bool)
	Set(ctx context.Context, template *models.Template) error
	Invalidate(ctx context.Context, templateID string) error
}

// PartialLoad records one element batch that could not be fetched. The steps
// listed carry zero elements in the returned tree; callers can distinguish
// "no elements" from "fetch failed".
type PartialLoad struct {
	StepIDs []string `json:"step_ids"`
	Reason  string   `json:"reason"`
}

// TemplateTree is the result of loading a template hierarchy. Partial is
// empty on a complete load.
type TemplateTree struct {
	Template *models.Template `json:"template"`
	Partial  []PartialLoad    `json:"partial_loads,omitempty"`
}

// Complete reports whether every element batch loaded.
func (t *TemplateTree) Complete() bool {
	return len(t.Partial) == 0
}

// Loader reconstructs a full template tree from flat rows. It fetches each
// level in one batched query instead of a single deep join, which would hit
// backend time and result-size limits on large templates.
type Loader struct {
	persistence persistence.Persistence
	cache       TreeCache
	logger      *slog.Logger
}

// NewLoader creates a hierarchy loader. cache may be nil.
func NewLoader(persistence persistence.Persistence, cache TreeCache, logger *slog.Logger) *Loader {
	return &Loader{persistence: persistence, cache: cache, logger: logger}
}

// Load returns the template with its stages, tasks, steps, and elements
// attached in order, or (nil, nil) when the template does not exist. A failed
// element batch is logged, skipped, and reported in the result rather than
// failing the whole load.
func (l *Loader) Load(ctx context.Context, templateID string) (*TemplateTree, error) {
	if l.cache != nil {
		if cached, ok := l.cache.Get(ctx, templateID); ok {
			return &TemplateTree{Template: cached}, nil
		}
	}

	template, err := l.persistence.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", templateID, err)
	}

	if template == nil {
		return nil, nil
	}

	stages, err := l.persistence.Stages().ListByTemplateID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages for template %s: %w", templateID, err)
	}

	stageIDs := make([]string, 0, len(stages))
	for _, stage := range stages {
		stageIDs = append(stageIDs, stage.ID)
	}

	tasks := make([]*models.Task, 0)
	if len(stageIDs) > 0 {
		tasks, err = l.persistence.Tasks().ListByStageIDs(ctx, stageIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load tasks for template %s: %w", templateID, err)
		}
	}

	taskIDs := make([]string, 0, len(tasks))
	for _, task := range tasks {
		taskIDs = append(taskIDs, task.ID)
	}

	steps := make([]*models.Step, 0)
	if len(taskIDs) > 0 {
		steps, err = l.persistence.Steps().ListByTaskIDs(ctx, taskIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load steps for template %s: %w", templateID, err)
		}
	}

	stepIDs := make([]string, 0, len(steps))
	for _, step := range steps {
		stepIDs = append(stepIDs, step.ID)
	}

	elements, partial := l.loadElements(ctx, stepIDs)

	// Reassemble bottom-up.
	elementsByStep := make(map[string][]*models.Element)
	for _, element := range elements {
		elementsByStep[element.StepID] = append(elementsByStep[element.StepID], element)
	}

	stepsByTask := make(map[string][]*models.Step)

	for _, step := range steps {
		step.Elements = elementsByStep[step.ID]
		if step.Elements == nil {
			step.Elements = make([]*models.Element, 0)
		}

		stepsByTask[step.TaskID] = append(stepsByTask[step.TaskID], step)
	}

	tasksByStage := make(map[string][]*models.Task)

	for _, task := range tasks {
		task.Steps = stepsByTask[task.ID]
		if task.Steps == nil {
			task.Steps = make([]*models.Step, 0)
		}

		tasksByStage[task.StageID] = append(tasksByStage[task.StageID], task)
	}

	for _, stage := range stages {
		stage.Tasks = tasksByStage[stage.ID]
		if stage.Tasks == nil {
			stage.Tasks = make([]*models.Task, 0)
		}
	}

	template.Stages = stages

	tree := &TemplateTree{Template: template, Partial: partial}

	if l.cache != nil && tree.Complete() {
		if err := l.cache.Set(ctx, template); err != nil {
			l.logger.WarnContext(ctx, "failed to cache template tree", "template_id", templateID, "error", err)
		}
	}

	return tree, nil
}

// loadElements fetches elements for the given steps, batching the query once
// the step count exceeds the threshold.
func (l *Loader) loadElements(ctx context.Context, stepIDs []string) ([]*models.Element, []PartialLoad) {
	if len(stepIDs) == 0 {
		return nil, nil
	}

	if len(stepIDs) <= elementBatchThreshold {
		elements, err := l.persistence.Elements().ListByStepIDs(ctx, stepIDs)
		if err != nil {
			l.logger.ErrorContext(ctx, "failed to load elements", "steps", len(stepIDs), "error", err)

			return nil, []PartialLoad{{StepIDs: stepIDs, Reason: err.Error()}}
		}

		return elements, nil
	}

	var (
		elements []*models.Element
		partial  []PartialLoad
	)

	for start := 0; start < len(stepIDs); start += elementBatchSize {
		end := min(start+elementBatchSize, len(stepIDs))
		batch := stepIDs[start:end]

		loaded, err := l.persistence.Elements().ListByStepIDs(ctx, batch)
		if err != nil {
			l.logger.ErrorContext(ctx, "failed to load element batch, skipping",
				"batch_start", start, "batch_size", len(batch), "error", err)
			partial = append(partial, PartialLoad{StepIDs: batch, Reason: err.Error()})

			continue
		}

		elements = append(elements, loaded...)
	}

	return elements, partial
}
