package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

func TestStep_Create_AssignsSequentialOrder(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")

	first := f.createStep(t, task.ID, "owner-1")
	assert.Equal(t, 1, first.StepOrder)

	second, err := f.steps.Create(t.Context(), task.ID, CreateStepRequest{Name: "Upload docs"}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.StepOrder)
}

func TestStep_Create_UnknownTask(t *testing.T) {
	f := newFixture()

	_, err := f.steps.Create(t.Context(), "missing", CreateStepRequest{Name: "step"}, "owner-1")

	assert.ErrorIs(t, err, persistence.ErrTaskNotFound)
}

func TestStep_Create_RejectsInvalidCondition(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")

	_, err := f.steps.Create(t.Context(), task.ID, CreateStepRequest{
		Name:      "Conditional",
		Condition: &models.Condition{Op: models.ConditionOpNot},
	}, "owner-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestStep_Create_CarriesValidationRules(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")

	step, err := f.steps.Create(t.Context(), task.ID, CreateStepRequest{
		Name: "Contact info",
		ValidationRules: []models.ValidationRule{
			{Type: "required", Message: "email is required"},
			{Type: "max_length", Value: 120},
		},
	}, "owner-1")
	require.NoError(t, err)
	require.Len(t, step.ValidationRules, 2)
	assert.Equal(t, "required", step.ValidationRules[0].Type)
}

func TestStep_Update_PatchesOnlyProvidedFields(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")
	step := f.createStep(t, task.ID, "owner-1")

	back := true
	updated, err := f.steps.Update(t.Context(), step.ID, StepPatch{AllowBackNavigation: &back}, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, step.Name, updated.Name)
	assert.True(t, updated.AllowBackNavigation)
	assert.True(t, updated.ClientVisible)
}

func TestStep_Delete_CascadesToElements(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")
	step := f.createStep(t, task.ID, "owner-1")

	element, err := f.elements.Create(t.Context(), step.ID, CreateElementRequest{
		Type: models.ElementTypeTextInput,
		Key:  "email",
	}, "owner-1")
	require.NoError(t, err)

	require.NoError(t, f.steps.Delete(t.Context(), step.ID, "owner-1"))

	gone, err := f.persistence.Elements().GetByID(t.Context(), element.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
