package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/persistence"
)

func TestProgress_Recompute_CountsOnlyClientVisibleSteps(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")

	visible := f.createStep(t, task.ID, "owner-1")

	hidden, err := f.steps.Create(t.Context(), task.ID, CreateStepRequest{
		Name:          "Internal check",
		ClientVisible: false,
	}, "owner-1")
	require.NoError(t, err)

	_, err = f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	// Data against the hidden step never moves the needle.
	_, err = f.instances.SubmitStepData(t.Context(), instance.ID, hidden.ID, StepDataSubmission{
		ElementKey: "internal_note", SubmittedBy: "owner-1",
	})
	require.NoError(t, err)

	current, err := f.instances.FetchByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.CompletionPercentage)

	_, err = f.instances.SubmitStepData(t.Context(), instance.ID, visible.ID, StepDataSubmission{
		ElementKey: "email", SubmittedBy: "client-1",
	})
	require.NoError(t, err)

	current, err = f.instances.FetchByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, current.CompletionPercentage)
}

func TestProgress_Recompute_NoVisibleStepsIsZero(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	_, err := f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	updated, err := f.progress.Recompute(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CompletionPercentage)
}

func TestProgress_Recompute_RoundsToNearest(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	stage := f.createStage(t, template.ID, "owner-1")
	task := f.createTask(t, stage.ID, "owner-1")

	steps := make([]string, 0, 3)
	for _, name := range []string{"One", "Two", "Three"} {
		step, err := f.steps.Create(t.Context(), task.ID, CreateStepRequest{
			Name:          name,
			ClientVisible: true,
		}, "owner-1")
		require.NoError(t, err)
		steps = append(steps, step.ID)
	}

	_, err := f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	_, err = f.instances.SubmitStepData(t.Context(), instance.ID, steps[0], StepDataSubmission{
		ElementKey: "a", SubmittedBy: "client-1",
	})
	require.NoError(t, err)

	current, err := f.instances.FetchByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, current.CompletionPercentage)

	_, err = f.instances.SubmitStepData(t.Context(), instance.ID, steps[1], StepDataSubmission{
		ElementKey: "b", SubmittedBy: "client-1",
	})
	require.NoError(t, err)

	current, err = f.instances.FetchByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 67, current.CompletionPercentage)
}

func TestProgress_Recompute_UnknownInstance(t *testing.T) {
	f := newFixture()

	_, err := f.progress.Recompute(t.Context(), "missing")

	assert.ErrorIs(t, err, persistence.ErrInstanceNotFound)
}

func TestProgress_Details_RollsUpHierarchy(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	stageA := f.createStage(t, template.ID, "owner-1")
	taskA := f.createTask(t, stageA.ID, "owner-1")
	stepA1 := f.createStep(t, taskA.ID, "owner-1")
	stepA2, err := f.steps.Create(t.Context(), taskA.ID, CreateStepRequest{
		Name:          "Upload docs",
		ClientVisible: true,
	}, "owner-1")
	require.NoError(t, err)

	stageB, err := f.stages.Create(t.Context(), template.ID, CreateStageRequest{Name: "Review"}, "owner-1")
	require.NoError(t, err)
	taskB := f.createTask(t, stageB.ID, "owner-1")
	stepB1 := f.createStep(t, taskB.ID, "owner-1")

	_, err = f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	for _, stepID := range []string{stepA1.ID, stepA2.ID} {
		_, err = f.instances.SubmitStepData(t.Context(), instance.ID, stepID, StepDataSubmission{
			ElementKey: "value", SubmittedBy: "client-1",
		})
		require.NoError(t, err)
	}

	details, err := f.progress.Details(t.Context(), instance.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, details.TotalStages)
	assert.Equal(t, 1, details.CompletedStages)
	assert.Equal(t, 2, details.TotalTasks)
	assert.Equal(t, 1, details.CompletedTasks)
	assert.Equal(t, 3, details.TotalSteps)
	assert.Equal(t, 2, details.CompletedSteps)
	assert.Equal(t, 67, details.Percentage)

	require.Len(t, details.Stages, 2)
	assert.True(t, details.Stages[0].Complete)
	assert.False(t, details.Stages[1].Complete)

	review := details.Stages[1]
	require.Len(t, review.Tasks, 1)
	require.Len(t, review.Tasks[0].Steps, 1)
	assert.Equal(t, stepB1.ID, review.Tasks[0].Steps[0].StepID)
	assert.False(t, review.Tasks[0].Steps[0].Complete)
}

func TestProgress_Details_EmptyTemplate(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	_, err := f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	details, err := f.progress.Details(t.Context(), instance.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, details.TotalSteps)
	assert.Equal(t, 0, details.Percentage)
	assert.Empty(t, details.Stages)
}
