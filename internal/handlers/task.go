package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/mwrueen/offtix-back/internal/errors"
	"github.com/mwrueen/offtix-back/internal/middleware"
	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/services"
)

// TaskHandler coordinates task and workflow HTTP handlers.
type TaskHandler struct {
	taskService     *services.TaskService
	workflowService *services.WorkflowService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, workflowService *services.WorkflowService) *TaskHandler {
	return &TaskHandler{
		taskService:     taskService,
		workflowService: workflowService,
	}
}

// ListTasks returns the tasks of a project.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	tasks, err := h.taskService.ListTasks(actor, projectID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTask returns a task with its full workflow state.
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(actor, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

type taskDurationRequest struct {
	Value float64             `json:"value"`
	Unit  models.DurationUnit `json:"unit"`
}

// CreateTask creates a task in a project.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title        string               `json:"title" binding:"required"`
		Description  string               `json:"description"`
		StatusID     *uint64              `json:"status_id"`
		Priority     models.TaskPriority  `json:"priority"`
		ProjectID    uint64               `json:"project_id" binding:"required"`
		SprintID     *uint64              `json:"sprint_id"`
		PhaseID      *uint64              `json:"phase_id"`
		ParentID     *uint64              `json:"parent_id"`
		Duration     *taskDurationRequest `json:"duration"`
		StartDate    *time.Time           `json:"start_date"`
		DueDate      *time.Time           `json:"due_date"`
		AssigneeIDs  []uint64             `json:"assignee_ids"`
		DependsOnIDs []uint64             `json:"depends_on_ids"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		StatusID:     req.StatusID,
		Priority:     req.Priority,
		ProjectID:    req.ProjectID,
		SprintID:     req.SprintID,
		PhaseID:      req.PhaseID,
		ParentID:     req.ParentID,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		AssigneeIDs:  req.AssigneeIDs,
		DependsOnIDs: req.DependsOnIDs,
	}
	if req.Duration != nil {
		input.Duration = models.Duration{Value: req.Duration.Value, Unit: req.Duration.Unit}
	}

	task, err := h.taskService.CreateTask(actor, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates a task. A status change into the completed status is
// rejected while dependencies are incomplete.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title        *string              `json:"title"`
		Description  *string              `json:"description"`
		StatusID     *uint64              `json:"status_id"`
		Priority     *models.TaskPriority `json:"priority"`
		SprintID     *uint64              `json:"sprint_id"`
		PhaseID      *uint64              `json:"phase_id"`
		Duration     *taskDurationRequest `json:"duration"`
		StartDate    *time.Time           `json:"start_date"`
		DueDate      *time.Time           `json:"due_date"`
		ClearDueDate bool                 `json:"clear_due_date"`
		AssigneeIDs  []uint64             `json:"assignee_ids"`
		DependsOnIDs []uint64             `json:"depends_on_ids"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		StatusID:     req.StatusID,
		Priority:     req.Priority,
		SprintID:     req.SprintID,
		PhaseID:      req.PhaseID,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		AssigneeIDs:  req.AssigneeIDs,
		DependsOnIDs: req.DependsOnIDs,
	}
	if req.Duration != nil {
		input.Duration = &models.Duration{Value: req.Duration.Value, Unit: req.Duration.Unit}
	}

	task, err := h.taskService.UpdateTask(actor, taskID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(actor, taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// CanTransition runs the dependency gate without mutating the task.
func (h *TaskHandler) CanTransition(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	statusID, err := strconv.ParseUint(c.Query("status_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid status_id")
		return
	}

	check, err := h.taskService.CanTransition(actor, taskID, statusID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// UpdateRoleAssignments wholesale replaces a task's workflow configuration.
func (h *TaskHandler) UpdateRoleAssignments(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type RoleAssignmentRequest struct {
		RoleID      uint64   `json:"role_id" binding:"required"`
		Order       int      `json:"order"`
		AssigneeIDs []uint64 `json:"assignee_ids"`
	}
	type UpdateAssignmentsRequest struct {
		RoleAssignments []RoleAssignmentRequest `json:"role_assignments"`
		UseRoleWorkflow *bool                   `json:"use_role_workflow"`
	}

	var req UpdateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	inputs := make([]services.RoleAssignmentInput, len(req.RoleAssignments))
	for i, ra := range req.RoleAssignments {
		inputs[i] = services.RoleAssignmentInput{
			RoleID:      ra.RoleID,
			Order:       ra.Order,
			AssigneeIDs: ra.AssigneeIDs,
		}
	}

	task, err := h.workflowService.ConfigureAssignments(taskID, actor, inputs, req.UseRoleWorkflow)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// StartWorkflow activates the first stage of a task's workflow.
func (h *TaskHandler) StartWorkflow(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	task, err := h.workflowService.Start(taskID, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CompleteRole completes the active stage with a handoff and activates the
// next stage when one exists.
func (h *TaskHandler) CompleteRole(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type HandoffFileRequest struct {
		Filename     string `json:"filename"`
		OriginalName string `json:"original_name"`
		Path         string `json:"path"`
		Size         int64  `json:"size"`
	}
	type HandoffURLRequest struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	type CompleteRequest struct {
		Comment string               `json:"comment"`
		Files   []HandoffFileRequest `json:"files"`
		URLs    []HandoffURLRequest  `json:"urls"`
	}

	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	payload := services.HandoffPayload{Comment: req.Comment}
	for _, f := range req.Files {
		payload.Files = append(payload.Files, services.HandoffFileInput{
			Filename:     f.Filename,
			OriginalName: f.OriginalName,
			Path:         f.Path,
			Size:         f.Size,
		})
	}
	for _, u := range req.URLs {
		payload.URLs = append(payload.URLs, services.HandoffURLInput{Title: u.Title, URL: u.URL})
	}

	task, err := h.workflowService.CompleteAndHandoff(taskID, actor, payload)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// SkipRole skips the active stage. Project owner only.
func (h *TaskHandler) SkipRole(c *gin.Context) {
	actor, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type SkipRequest struct {
		Reason string `json:"reason"`
	}

	var req SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.workflowService.Skip(taskID, actor, req.Reason)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func taskRequest(c *gin.Context) (*models.User, uint64, bool) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return nil, 0, false
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return nil, 0, false
	}
	return actor, taskID, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrStatusNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectAccessDenied),
		errors.Is(err, services.ErrNotRoleAssignee),
		errors.Is(err, services.ErrOnlyOwnerCanSkip):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrStatusWrongProject),
		errors.Is(err, services.ErrInvalidTaskAssignee),
		errors.Is(err, services.ErrInvalidDependency),
		errors.Is(err, services.ErrSelfDependency),
		errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDependenciesBlock),
		errors.Is(err, services.ErrWorkflowNotConfigured),
		errors.Is(err, services.ErrWorkflowAlreadyStarted),
		errors.Is(err, services.ErrWorkflowNotStarted),
		errors.Is(err, services.ErrNoActiveRole),
		errors.Is(err, services.ErrWorkflowInProgress):
		apierrors.InvalidState(c, err.Error())
	case errors.Is(err, services.ErrWorkflowConflict):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
