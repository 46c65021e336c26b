package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/getplaybook/playbook/pkg/persistence/memory"
)

func TestLoader_Load_MissingTemplateReturnsNil(t *testing.T) {
	f := newFixture()

	tree, err := f.loader.Load(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, tree)
}

func TestLoader_Load_AssemblesOrderedTree(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	stageB, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{Name: "Intake"}, "owner-1")
	require.NoError(t, err)
	stageA, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{Name: "Review"}, "owner-1")
	require.NoError(t, err)

	// Move Review ahead of Intake.
	order := 0
	_, err = f.stages.Update(t.Context(), stageA.ID, StagePatch{StageOrder: &order}, "owner-1")
	require.NoError(t, err)

	task := f.createTask(t, stageB.ID, "owner-1")
	step := f.createStep(t, task.ID, "owner-1")

	_, err = f.elements.Create(t.Context(), step.ID, CreateElementRequest{
		Type: models.ElementTypeTextInput,
		Key:  "email",
	}, "owner-1")
	require.NoError(t, err)

	tree, err := f.loader.Load(t.Context(), template.ID)
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.True(t, tree.Complete())

	require.Len(t, tree.Template.Stages, 2)
	assert.Equal(t, "Review", tree.Template.Stages[0].Name)
	assert.Equal(t, "Intake", tree.Template.Stages[1].Name)

	intake := tree.Template.Stages[1]
	require.Len(t, intake.Tasks, 1)
	require.Len(t, intake.Tasks[0].Steps, 1)
	require.Len(t, intake.Tasks[0].Steps[0].Elements, 1)
	assert.Equal(t, "email", intake.Tasks[0].Steps[0].Elements[0].Key)

	// Empty levels come back as empty slices, not nil.
	assert.NotNil(t, tree.Template.Stages[0].Tasks)
	assert.Empty(t, tree.Template.Stages[0].Tasks)
}

// flakyPersistence fails element batches that contain a marked step.
type flakyPersistence struct {
	*memory.Persistence

	failStepID string
}

func (p *flakyPersistence) Elements() persistence.ElementRepository {
	return &flakyElements{inner: p.Persistence.Elements(), failStepID: p.failStepID}
}

type flakyElements struct {
	inner      persistence.ElementRepository
	failStepID string
}

func (r *flakyElements) GetByID(ctx context.Context, id string) (*models.Element, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *flakyElements) ListByStepID(ctx context.Context, stepID string) ([]*models.Element, error) {
	return r.inner.ListByStepID(ctx, stepID)
}

func (r *flakyElements) ListByStepIDs(ctx context.Context, stepIDs []string) ([]*models.Element, error) {
	if slices.Contains(stepIDs, r.failStepID) {
		return nil, errors.New("backend timed out")
	}

	return r.inner.ListByStepIDs(ctx, stepIDs)
}

func (r *flakyElements) MaxOrder(ctx context.Context, stepID string) (int, error) {
	return r.inner.MaxOrder(ctx, stepID)
}

func (r *flakyElements) Save(ctx context.Context, element *models.Element) error {
	return r.inner.Save(ctx, element)
}

func (r *flakyElements) Delete(ctx context.Context, id string) error {
	return r.inner.Delete(ctx, id)
}

func seedWideTemplate(t *testing.T, f *fixture, stepCount int) (templateID string, stepIDs []string) {
	t.Helper()

	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")

	for i := 0; i < stepCount; i++ {
		step, err := f.steps.Create(t.Context(), task.ID, CreateStepRequest{
			Name:          fmt.Sprintf("Step %02d", i),
			ClientVisible: true,
		}, "owner-1")
		require.NoError(t, err)

		_, err = f.elements.Create(t.Context(), step.ID, CreateElementRequest{
			Type: models.ElementTypeTextInput,
			Key:  fmt.Sprintf("field_%02d", i),
		}, "owner-1")
		require.NoError(t, err)

		stepIDs = append(stepIDs, step.ID)
	}

	return template.ID, stepIDs
}

func TestLoader_Load_BatchesWideTemplates(t *testing.T) {
	f := newFixture()
	templateID, stepIDs := seedWideTemplate(t, f, elementBatchThreshold+2)

	tree, err := f.loader.Load(t.Context(), templateID)
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.True(t, tree.Complete())

	loaded := 0

	for _, stage := range tree.Template.Stages {
		for _, task := range stage.Tasks {
			for _, step := range task.Steps {
				loaded += len(step.Elements)
			}
		}
	}

	assert.Equal(t, len(stepIDs), loaded)
}

func TestLoader_Load_ReportsFailedBatches(t *testing.T) {
	f := newFixture()
	templateID, stepIDs := seedWideTemplate(t, f, elementBatchThreshold+2)

	flaky := &flakyPersistence{Persistence: f.persistence, failStepID: stepIDs[15]}
	loader := NewLoader(flaky, nil, slog.New(slog.DiscardHandler))

	tree, err := loader.Load(t.Context(), templateID)
	require.NoError(t, err)
	require.NotNil(t, tree)

	assert.False(t, tree.Complete())
	require.Len(t, tree.Partial, 1)
	assert.Len(t, tree.Partial[0].StepIDs, elementBatchSize)
	assert.Contains(t, tree.Partial[0].StepIDs, stepIDs[15])
	assert.Equal(t, "backend timed out", tree.Partial[0].Reason)

	// Steps outside the failed batch still carry their elements.
	loaded := 0

	for _, stage := range tree.Template.Stages {
		for _, task := range stage.Tasks {
			for _, step := range task.Steps {
				loaded += len(step.Elements)
			}
		}
	}

	assert.Equal(t, len(stepIDs)-elementBatchSize, loaded)
}

// staticCache is a single-template TreeCache for loader tests.
type staticCache struct {
	template    *models.Template
	sets        int
	invalidates int
}

func (c *staticCache) Get(ctx context.Context, templateID string) (*models.Template, bool) {
	if c.template != nil && c.template.ID == templateID {
		return c.template, true
	}

	return nil, false
}

func (c *staticCache) Set(ctx context.Context, template *models.Template) error {
	c.template = template
	c.sets++

	return nil
}

func (c *staticCache) Invalidate(ctx context.Context, templateID string) error {
	c.template = nil
	c.invalidates++

	return nil
}

func TestLoader_Load_PopulatesAndServesCache(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")
	f.createStep(t, task.ID, "owner-1")

	cache := &staticCache{}
	loader := NewLoader(f.persistence, cache, slog.New(slog.DiscardHandler))

	_, err := loader.Load(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	tree, err := loader.Load(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	require.Len(t, tree.Template.Stages, 1)
}

func TestLoader_Load_SkipsCachingPartialTrees(t *testing.T) {
	f := newFixture()
	templateID, stepIDs := seedWideTemplate(t, f, elementBatchThreshold+2)

	cache := &staticCache{}
	flaky := &flakyPersistence{Persistence: f.persistence, failStepID: stepIDs[0]}
	loader := NewLoader(flaky, cache, slog.New(slog.DiscardHandler))

	tree, err := loader.Load(t.Context(), templateID)
	require.NoError(t, err)
	assert.False(t, tree.Complete())
	assert.Equal(t, 0, cache.sets)
}
