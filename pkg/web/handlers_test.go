package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence/memory"
	"github.com/getplaybook/playbook/pkg/services"
	"github.com/getplaybook/playbook/pkg/web"
)

type testEnv struct {
	app         *fiber.App
	persistence *memory.Persistence
	templates   *services.Template
	stages      *services.Stage
	tasks       *services.Task
	steps       *services.Step
	instances   *services.Instance
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	p := memory.NewPersistence()
	logger := slog.New(slog.DiscardHandler)
	guard := services.NewGuard(p)
	toucher := services.NewToucher(p, nil, nil, logger)
	loader := services.NewLoader(p, nil, logger)
	progress := services.NewProgress(p, loader, logger)

	templateService := services.NewTemplate(p, guard, nil, nil, logger)
	stageService := services.NewStage(p, guard, toucher)
	taskService := services.NewTask(p, guard, toucher)
	stepService := services.NewStep(p, guard, toucher)
	elementService := services.NewElement(p, guard, toucher)
	instanceService := services.NewInstance(p, progress, nil, logger)
	analytics := services.NewAnalytics(p)

	handlers := web.NewAPIHandlers(
		templateService,
		stageService,
		taskService,
		stepService,
		elementService,
		instanceService,
		progress,
		analytics,
		loader,
		p,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	handlers.Register(app)

	return &testEnv{
		app:         app,
		persistence: p,
		templates:   templateService,
		stages:      stageService,
		tasks:       taskService,
		steps:       stepService,
		instances:   instanceService,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func (e *testEnv) seedTemplate(t *testing.T) *models.Template {
	t.Helper()

	template, err := e.templates.Create(t.Context(), services.CreateTemplateRequest{
		Name:      "Client Onboarding",
		Type:      models.TemplateTypeStandard,
		CreatedBy: "owner-1",
	})
	require.NoError(t, err)

	return template
}

func TestAPIHandlers_CreateTemplate(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateTemplateRequest{
				Name:      "Client Onboarding",
				Type:      models.TemplateTypeStandard,
				Color:     "#3366FF",
				CreatedBy: "owner-1",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing name",
			requestBody: web.CreateTemplateRequest{
				Type:      models.TemplateTypeStandard,
				CreatedBy: "owner-1",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown template type",
			requestBody: web.CreateTemplateRequest{
				Name:      "Onboarding",
				Type:      models.TemplateType("spiral"),
				CreatedBy: "owner-1",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing created_by",
			requestBody: web.CreateTemplateRequest{
				Name: "Onboarding",
				Type: models.TemplateTypeStandard,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t)

			resp := env.request(t, http.MethodPost, "/templates/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				created := decodeBody[models.Template](t, resp)
				assert.NotEmpty(t, created.ID)
				assert.False(t, created.IsPublished)
				assert.Equal(t, 1, created.Version)
			}
		})
	}
}

func TestAPIHandlers_GetTemplate_NotFound(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	problem := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Not Found", problem["title"])
	assert.Contains(t, problem["detail"], "not found")
}

func TestAPIHandlers_ListTemplates(t *testing.T) {
	env := setupTestApp(t)
	env.seedTemplate(t)

	resp := env.request(t, http.MethodGet, "/templates/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(1), body["total_count"])

	resp = env.request(t, http.MethodGet, "/templates/?is_published=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(0), body["total_count"])

	resp = env.request(t, http.MethodGet, "/templates/?is_active=banana", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_UpdateTemplate(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPatch, "/templates/"+template.ID, map[string]any{
		"name":       "Renamed",
		"updated_by": "owner-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeBody[models.Template](t, resp)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, template.Type, updated.Type)
}

func TestAPIHandlers_UpdateTemplate_Forbidden(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPatch, "/templates/"+template.ID, map[string]any{
		"name":       "Hijacked",
		"updated_by": "stranger",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	problem := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Forbidden", problem["title"])
}

func TestAPIHandlers_DeleteTemplate(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodDelete, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/templates/"+template.ID+"?actor=owner-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DeleteTemplate_ConflictWithActiveInstances(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPost, "/templates/"+template.ID+"/publish?actor=owner-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	instance, err := env.instances.Create(t.Context(), services.CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	active := models.InstanceStatusActive
	_, err = env.instances.UpdateProgress(t.Context(), instance.ID, services.ProgressUpdate{
		Status:    &active,
		UpdatedBy: "client-1",
	})
	require.NoError(t, err)

	resp = env.request(t, http.MethodDelete, "/templates/"+template.ID+"?actor=owner-1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_PublishTemplate(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPost, "/templates/"+template.ID+"/publish?actor=owner-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	published := decodeBody[models.Template](t, resp)
	assert.True(t, published.IsPublished)
	assert.Equal(t, 2, published.Version)

	resp = env.request(t, http.MethodPost, "/templates/"+template.ID+"/unpublish?actor=owner-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	unpublished := decodeBody[models.Template](t, resp)
	assert.False(t, unpublished.IsPublished)
}

func TestAPIHandlers_CreateStage(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPost, "/templates/"+template.ID+"/stages", web.CreateStageRequest{
		Name:      "Intake",
		CreatedBy: "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	stage := decodeBody[models.Stage](t, resp)
	assert.Equal(t, 1, stage.StageOrder)
	assert.Equal(t, template.ID, stage.TemplateID)
}

func TestAPIHandlers_CreateStage_InvalidCondition(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPost, "/templates/"+template.ID+"/stages", map[string]any{
		"name":       "Conditional",
		"condition":  map[string]any{"op": "and"},
		"created_by": "owner-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_HierarchyCreation(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodPost, "/templates/"+template.ID+"/stages", web.CreateStageRequest{
		Name:      "Intake",
		CreatedBy: "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	stage := decodeBody[models.Stage](t, resp)

	resp = env.request(t, http.MethodPost, "/stages/"+stage.ID+"/tasks", web.CreateTaskRequest{
		Name:      "Collect details",
		CreatedBy: "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := decodeBody[models.Task](t, resp)

	resp = env.request(t, http.MethodPost, "/tasks/"+task.ID+"/steps", web.CreateStepRequest{
		Name:          "Contact info",
		ClientVisible: true,
		CreatedBy:     "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	step := decodeBody[models.Step](t, resp)

	resp = env.request(t, http.MethodPost, "/steps/"+step.ID+"/elements", web.CreateElementRequest{
		Type:      models.ElementTypeTextInput,
		Key:       "email",
		Label:     "Email",
		CreatedBy: "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	element := decodeBody[models.Element](t, resp)
	assert.Equal(t, "email", element.Key)

	resp = env.request(t, http.MethodGet, "/templates/"+template.ID+"/tree", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tree := decodeBody[services.TemplateTree](t, resp)
	require.Len(t, tree.Template.Stages, 1)
	require.Len(t, tree.Template.Stages[0].Tasks, 1)
	require.Len(t, tree.Template.Stages[0].Tasks[0].Steps, 1)
	require.Len(t, tree.Template.Stages[0].Tasks[0].Steps[0].Elements, 1)
}

func TestAPIHandlers_GetTemplateTree_NotFound(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/templates/missing/tree", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetTemplateAnalytics(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	resp := env.request(t, http.MethodGet, "/templates/"+template.ID+"/analytics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decodeBody[services.TemplateAnalytics](t, resp)
	assert.Equal(t, template.ID, report.TemplateID)
	assert.Len(t, report.UsageByMonth, 12)
}

func TestAPIHandlers_CreateInstance(t *testing.T) {
	env := setupTestApp(t)
	template := env.seedTemplate(t)

	// Unpublished templates cannot be instantiated.
	resp := env.request(t, http.MethodPost, "/instances/", web.CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	publish := env.request(t, http.MethodPost, "/templates/"+template.ID+"/publish?actor=owner-1", nil)
	require.Equal(t, http.StatusOK, publish.StatusCode)

	resp = env.request(t, http.MethodPost, "/instances/", web.CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	instance := decodeBody[models.Instance](t, resp)
	assert.Equal(t, models.InstanceStatusDraft, instance.Status)
	assert.Equal(t, 0, instance.CompletionPercentage)
}

func seedRunnableInstance(t *testing.T, env *testEnv) (*models.Instance, []string) {
	t.Helper()

	template := env.seedTemplate(t)
	stage, err := env.stages.Create(t.Context(), template.ID, services.CreateStageRequest{Name: "Intake"}, "owner-1")
	require.NoError(t, err)
	task, err := env.tasks.Create(t.Context(), stage.ID, services.CreateTaskRequest{Name: "Collect"}, "owner-1")
	require.NoError(t, err)

	stepIDs := make([]string, 0, 2)

	for i := 0; i < 2; i++ {
		step, err := env.steps.Create(t.Context(), task.ID, services.CreateStepRequest{
			Name:          fmt.Sprintf("Step %d", i+1),
			ClientVisible: true,
		}, "owner-1")
		require.NoError(t, err)
		stepIDs = append(stepIDs, step.ID)
	}

	_, err = env.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := env.instances.Create(t.Context(), services.CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	return instance, stepIDs
}

func TestAPIHandlers_SubmitStepData(t *testing.T) {
	env := setupTestApp(t)
	instance, stepIDs := seedRunnableInstance(t, env)

	resp := env.request(t, http.MethodPost, "/instances/"+instance.ID+"/steps/"+stepIDs[0]+"/data",
		web.StepDataSubmissionRequest{
			ElementKey:  "email",
			Value:       "a@example.com",
			DataType:    "string",
			SubmittedBy: "client-1",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	saved := decodeBody[models.StepData](t, resp)
	assert.Equal(t, "email", saved.ElementKey)
	assert.True(t, saved.IsValid)

	resp = env.request(t, http.MethodGet, "/instances/"+instance.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	current := decodeBody[models.Instance](t, resp)
	assert.Equal(t, 50, current.CompletionPercentage)
}

func TestAPIHandlers_SubmitStepData_UnknownStep(t *testing.T) {
	env := setupTestApp(t)
	instance, _ := seedRunnableInstance(t, env)

	resp := env.request(t, http.MethodPost, "/instances/"+instance.ID+"/steps/missing/data",
		web.StepDataSubmissionRequest{
			ElementKey:  "email",
			SubmittedBy: "client-1",
		})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetProgress(t *testing.T) {
	env := setupTestApp(t)
	instance, stepIDs := seedRunnableInstance(t, env)

	resp := env.request(t, http.MethodPost, "/instances/"+instance.ID+"/steps/"+stepIDs[0]+"/data",
		web.StepDataSubmissionRequest{
			ElementKey:  "email",
			SubmittedBy: "client-1",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/instances/"+instance.ID+"/progress", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	details := decodeBody[services.ProgressDetails](t, resp)
	assert.Equal(t, 2, details.TotalSteps)
	assert.Equal(t, 1, details.CompletedSteps)
	assert.Equal(t, 50, details.Percentage)
}

func TestAPIHandlers_UpdateProgress(t *testing.T) {
	env := setupTestApp(t)
	instance, _ := seedRunnableInstance(t, env)

	resp := env.request(t, http.MethodPatch, "/instances/"+instance.ID+"/progress", map[string]any{
		"status":     "active",
		"updated_by": "client-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeBody[models.Instance](t, resp)
	assert.Equal(t, models.InstanceStatusActive, updated.Status)
	assert.NotNil(t, updated.StartedAt)
}

func TestAPIHandlers_UpdateProgress_InvalidTransition(t *testing.T) {
	env := setupTestApp(t)
	instance, _ := seedRunnableInstance(t, env)

	resp := env.request(t, http.MethodPatch, "/instances/"+instance.ID+"/progress", map[string]any{
		"status":     "completed",
		"updated_by": "client-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPatch, "/instances/"+instance.ID+"/progress", map[string]any{
		"status":     "active",
		"updated_by": "client-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_UpdateProgress_RejectsOutOfRangePercentage(t *testing.T) {
	env := setupTestApp(t)
	instance, _ := seedRunnableInstance(t, env)

	resp := env.request(t, http.MethodPatch, "/instances/"+instance.ID+"/progress", map[string]any{
		"completion_percentage": 150,
		"updated_by":            "client-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetInstance_NotFound(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/instances/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
}
