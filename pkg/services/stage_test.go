package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

func TestStage_Create_AssignsSequentialOrder(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	first, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{Name: "Intake"}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.StageOrder)

	second, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{Name: "Review"}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.StageOrder)
}

func TestStage_Create_UnknownTemplate(t *testing.T) {
	f := newFixture()

	_, err := f.stages.Create(t.Context(), "missing", CreateStageRequest{Name: "Intake"}, "owner-1")

	assert.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestStage_Create_DeniedForStranger(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	_, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{Name: "Intake"}, "stranger")

	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestStage_Create_RejectsInvalidCondition(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	_, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{
		Name:      "Conditional",
		Condition: &models.Condition{Op: models.ConditionOpAnd},
	}, "owner-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestStage_Create_TouchesTemplate(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	f.createStage(t, template.ID, "owner-1")

	touched, err := f.templates.FetchByID(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", touched.UpdatedBy)
	assert.False(t, touched.UpdatedAt.Before(template.UpdatedAt))
}

func TestStage_Update_PatchesOnlyProvidedFields(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")

	order := 5
	skip := true
	updated, err := f.stages.Update(t.Context(), stage.ID, StagePatch{
		StageOrder: &order,
		AllowSkip:  &skip,
	}, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, "Intake", updated.Name)
	assert.Equal(t, 5, updated.StageOrder)
	assert.True(t, updated.AllowSkip)
}

func TestStage_Update_RejectsBlankName(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")

	blank := "  "
	_, err := f.stages.Update(t.Context(), stage.ID, StagePatch{Name: &blank}, "owner-1")

	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestStage_Delete_CascadesThroughStore(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")
	step := f.createStep(t, task.ID, "owner-1")

	require.NoError(t, f.stages.Delete(t.Context(), stage.ID, "owner-1"))

	gone, err := f.persistence.Steps().GetByID(t.Context(), step.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestStage_Delete_BlockedByActiveInstances(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")

	_, err := f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	active := models.InstanceStatusActive
	_, err = f.instances.UpdateProgress(t.Context(), instance.ID, ProgressUpdate{
		Status:    &active,
		UpdatedBy: "client-1",
	})
	require.NoError(t, err)

	err = f.stages.Delete(t.Context(), stage.ID, "owner-1")
	assert.ErrorIs(t, err, ErrActiveInstances)
}
