package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/getplaybook/playbook/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	templateService *services.Template
	stageService    *services.Stage
	taskService     *services.Task
	stepService     *services.Step
	elementService  *services.Element
	instanceService *services.Instance
	progressService *services.Progress
	analytics       *services.Analytics
	loader          *services.Loader
	persistence     persistence.Persistence
	validator       *validator.Validate
}

func NewAPIHandlers(
	templateService *services.Template,
	stageService *services.Stage,
	taskService *services.Task,
	stepService *services.Step,
	elementService *services.Element,
	instanceService *services.Instance,
	progressService *services.Progress,
	analytics *services.Analytics,
	loader *services.Loader,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		templateService: templateService,
		stageService:    stageService,
		taskService:     taskService,
		stepService:     stepService,
		elementService:  elementService,
		instanceService: instanceService,
		progressService: progressService,
		analytics:       analytics,
		loader:          loader,
		persistence:     persistence,
		validator:       validator,
	}
}

// Register wires every route onto the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	templates := app.Group("/templates")
	templates.Get("/", h.ListTemplates)
	templates.Post("/", h.CreateTemplate)
	templates.Get("/:id", h.GetTemplate)
	templates.Patch("/:id", h.UpdateTemplate)
	templates.Delete("/:id", h.DeleteTemplate)
	templates.Post("/:id/publish", h.PublishTemplate)
	templates.Post("/:id/unpublish", h.UnpublishTemplate)
	templates.Get("/:id/tree", h.GetTemplateTree)
	templates.Get("/:id/analytics", h.GetTemplateAnalytics)
	templates.Post("/:id/stages", h.CreateStage)

	stages := app.Group("/stages")
	stages.Patch("/:id", h.UpdateStage)
	stages.Delete("/:id", h.DeleteStage)
	stages.Post("/:id/tasks", h.CreateTask)

	tasks := app.Group("/tasks")
	tasks.Patch("/:id", h.UpdateTask)
	tasks.Delete("/:id", h.DeleteTask)
	tasks.Post("/:id/steps", h.CreateStep)

	steps := app.Group("/steps")
	steps.Patch("/:id", h.UpdateStep)
	steps.Delete("/:id", h.DeleteStep)
	steps.Post("/:id/elements", h.CreateElement)

	elements := app.Group("/elements")
	elements.Patch("/:id", h.UpdateElement)
	elements.Delete("/:id", h.DeleteElement)

	instances := app.Group("/instances")
	instances.Post("/", h.CreateInstance)
	instances.Get("/:id", h.GetInstance)
	instances.Get("/:id/progress", h.GetProgress)
	instances.Patch("/:id/progress", h.UpdateProgress)
	instances.Post("/:id/steps/:stepId/data", h.SubmitStepData)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	checkers := fiber.Map{"repository": "ok"}

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		checkers["repository"] = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"checkers":  checkers,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListTemplates(c fiber.Ctx) error {
	filters, err := parseTemplateFilters(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	templates, err := h.templateService.List(c.Context(), *filters)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates":   templates,
		"total_count": len(templates),
	})
}

// parseTemplateFilters parses and validates query parameters for listing
// templates.
func parseTemplateFilters(c fiber.Ctx) (*persistence.TemplateFilters, error) {
	filters := &persistence.TemplateFilters{}

	if typeStr := c.Query("template_type"); typeStr != "" {
		templateType := models.TemplateType(typeStr)
		filters.Type = &templateType
	}

	if activeStr := c.Query("is_active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		filters.IsActive = &active
	}

	if publishedStr := c.Query("is_published"); publishedStr != "" {
		published, err := strconv.ParseBool(publishedStr)
		if err != nil {
			return nil, err
		}

		filters.IsPublished = &published
	}

	filters.CreatedBy = c.Query("created_by")
	filters.Category = c.Query("category")

	if tag := c.Query("tag"); tag != "" {
		filters.Tags = []string{tag}
	}

	return filters, nil
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.templateService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.templateService.Create(c.Context(), req.toService())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.templateService.Update(c.Context(), id, req.toService(), req.UpdatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	if err := h.templateService.Delete(c.Context(), id, actor); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	published, err := h.templateService.Publish(c.Context(), id, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) UnpublishTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	unpublished, err := h.templateService.Unpublish(c.Context(), id, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(unpublished)
}

func (h *APIHandlers) GetTemplateTree(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	tree, err := h.loader.Load(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if tree == nil {
		return notFound(c, "Template not found")
	}

	return c.JSON(tree)
}

func (h *APIHandlers) GetTemplateAnalytics(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	report, err := h.analytics.ForTemplate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) CreateStage(c fiber.Ctx) error {
	templateID := c.Params("id")
	if templateID == "" {
		return badRequest(c, "Template ID is required")
	}

	var req CreateStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.stageService.Create(c.Context(), templateID, services.CreateStageRequest{
		Name:          req.Name,
		Description:   req.Description,
		IsRequired:    req.IsRequired,
		AllowSkip:     req.AllowSkip,
		AutoAdvance:   req.AutoAdvance,
		Condition:     req.Condition,
		ClientVisible: req.ClientVisible,
	}, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateStage(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Stage ID is required")
	}

	var req UpdateStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.stageService.Update(c.Context(), id, services.StagePatch{
		Name:          req.Name,
		Description:   req.Description,
		StageOrder:    req.StageOrder,
		IsRequired:    req.IsRequired,
		AllowSkip:     req.AllowSkip,
		AutoAdvance:   req.AutoAdvance,
		Condition:     req.Condition,
		ClientVisible: req.ClientVisible,
	}, req.UpdatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteStage(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Stage ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	if err := h.stageService.Delete(c.Context(), id, actor); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateTask(c fiber.Ctx) error {
	stageID := c.Params("id")
	if stageID == "" {
		return badRequest(c, "Stage ID is required")
	}

	var req CreateTaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.taskService.Create(c.Context(), stageID, services.CreateTaskRequest{
		Name:                     req.Name,
		Description:              req.Description,
		AssignedTo:               req.AssignedTo,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		DueOffsetDays:            req.DueOffsetDays,
		DependsOnTaskIDs:         req.DependsOnTaskIDs,
		ClientVisible:            req.ClientVisible,
	}, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateTask(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	var req UpdateTaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.taskService.Update(c.Context(), id, services.TaskPatch{
		Name:                     req.Name,
		Description:              req.Description,
		TaskOrder:                req.TaskOrder,
		AssignedTo:               req.AssignedTo,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		DueOffsetDays:            req.DueOffsetDays,
		DependsOnTaskIDs:         req.DependsOnTaskIDs,
		ClientVisible:            req.ClientVisible,
	}, req.UpdatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTask(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	if err := h.taskService.Delete(c.Context(), id, actor); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateStep(c fiber.Ctx) error {
	taskID := c.Params("id")
	if taskID == "" {
		return badRequest(c, "Task ID is required")
	}

	var req CreateStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.stepService.Create(c.Context(), taskID, services.CreateStepRequest{
		Name:                req.Name,
		Description:         req.Description,
		AllowSkip:           req.AllowSkip,
		AutoAdvance:         req.AutoAdvance,
		ShowProgress:        req.ShowProgress,
		AllowBackNavigation: req.AllowBackNavigation,
		SaveProgress:        req.SaveProgress,
		ValidationRules:     req.ValidationRules,
		Condition:           req.Condition,
		ClientVisible:       req.ClientVisible,
	}, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateStep(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Step ID is required")
	}

	var req UpdateStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.stepService.Update(c.Context(), id, services.StepPatch{
		Name:                req.Name,
		Description:         req.Description,
		StepOrder:           req.StepOrder,
		AllowSkip:           req.AllowSkip,
		AutoAdvance:         req.AutoAdvance,
		ShowProgress:        req.ShowProgress,
		AllowBackNavigation: req.AllowBackNavigation,
		SaveProgress:        req.SaveProgress,
		ValidationRules:     req.ValidationRules,
		Condition:           req.Condition,
		ClientVisible:       req.ClientVisible,
	}, req.UpdatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteStep(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Step ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	if err := h.stepService.Delete(c.Context(), id, actor); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateElement(c fiber.Ctx) error {
	stepID := c.Params("id")
	if stepID == "" {
		return badRequest(c, "Step ID is required")
	}

	var req CreateElementRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.elementService.Create(c.Context(), stepID, services.CreateElementRequest{
		Type:          req.Type,
		Key:           req.Key,
		Label:         req.Label,
		Required:      req.Required,
		ClientVisible: req.ClientVisible,
		Config:        req.Config,
	}, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateElement(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Element ID is required")
	}

	var req UpdateElementRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.elementService.Update(c.Context(), id, services.ElementPatch{
		Label:         req.Label,
		ElementOrder:  req.ElementOrder,
		Required:      req.Required,
		ClientVisible: req.ClientVisible,
		Config:        req.Config,
	}, req.UpdatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteElement(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Element ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	if err := h.elementService.Delete(c.Context(), id, actor); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateInstance(c fiber.Ctx) error {
	var req CreateInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.instanceService.Create(c.Context(), services.CreateInstanceRequest{
		TemplateID: req.TemplateID,
		ProjectID:  req.ProjectID,
		ClientID:   req.ClientID,
		Data:       req.Data,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := h.instanceService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) GetProgress(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	details, err := h.progressService.Details(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(details)
}

func (h *APIHandlers) UpdateProgress(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	var req ProgressUpdateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.instanceService.UpdateProgress(c.Context(), id, services.ProgressUpdate{
		CurrentStageID:       req.CurrentStageID,
		CurrentTaskID:        req.CurrentTaskID,
		CurrentStepID:        req.CurrentStepID,
		CompletionPercentage: req.CompletionPercentage,
		Status:               req.Status,
		UpdatedBy:            req.UpdatedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) SubmitStepData(c fiber.Ctx) error {
	instanceID := c.Params("id")
	if instanceID == "" {
		return badRequest(c, "Instance ID is required")
	}

	stepID := c.Params("stepId")
	if stepID == "" {
		return badRequest(c, "Step ID is required")
	}

	var req StepDataSubmissionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	saved, err := h.instanceService.SubmitStepData(c.Context(), instanceID, stepID, services.StepDataSubmission{
		ElementKey:  req.ElementKey,
		Value:       req.Value,
		DataType:    req.DataType,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}
