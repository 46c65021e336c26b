package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence/memory"
)

// fixture wires the full service graph against an in-memory store with a
// synchronous toucher and no cache.
type fixture struct {
	persistence *memory.Persistence
	templates   *Template
	stages      *Stage
	tasks       *Task
	steps       *Step
	elements    *Element
	instances   *Instance
	progress    *Progress
	loader      *Loader
	analytics   *Analytics
}

func newFixture() *fixture {
	p := memory.NewPersistence()
	logger := slog.New(slog.DiscardHandler)
	guard := NewGuard(p)
	toucher := NewToucher(p, nil, nil, logger)
	loader := NewLoader(p, nil, logger)
	progress := NewProgress(p, loader, logger)

	return &fixture{
		persistence: p,
		templates:   NewTemplate(p, guard, nil, nil, logger),
		stages:      NewStage(p, guard, toucher),
		tasks:       NewTask(p, guard, toucher),
		steps:       NewStep(p, guard, toucher),
		elements:    NewElement(p, guard, toucher),
		instances:   NewInstance(p, progress, nil, logger),
		progress:    progress,
		loader:      loader,
		analytics:   NewAnalytics(p),
	}
}

func (f *fixture) createTemplate(t *testing.T, owner string) *models.Template {
	t.Helper()

	template, err := f.templates.Create(t.Context(), CreateTemplateRequest{
		Name:      "Client Onboarding",
		Type:      models.TemplateTypeStandard,
		CreatedBy: owner,
	})
	require.NoError(t, err)

	return template
}

func (f *fixture) createStage(t *testing.T, templateID, actor string) *models.Stage {
	t.Helper()

	stage, err := f.stages.Create(t.Context(), templateID, CreateStageRequest{Name: "Intake"}, actor)
	require.NoError(t, err)

	return stage
}

func (f *fixture) createTask(t *testing.T, stageID, actor string) *models.Task {
	t.Helper()

	task, err := f.tasks.Create(t.Context(), stageID, CreateTaskRequest{Name: "Collect details"}, actor)
	require.NoError(t, err)

	return task
}

func (f *fixture) createStep(t *testing.T, taskID, actor string) *models.Step {
	t.Helper()

	step, err := f.steps.Create(t.Context(), taskID, CreateStepRequest{
		Name:          "Contact info",
		ClientVisible: true,
	}, actor)
	require.NoError(t, err)

	return step
}
