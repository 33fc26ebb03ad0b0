package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/mwrueen/offtix-back/internal/errors"
	"github.com/mwrueen/offtix-back/internal/middleware"
	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/services"
)

// TaskRoleHandler handles workflow role HTTP requests.
type TaskRoleHandler struct {
	taskRoleService *services.TaskRoleService
}

// NewTaskRoleHandler creates a new TaskRoleHandler.
func NewTaskRoleHandler(taskRoleService *services.TaskRoleService) *TaskRoleHandler {
	return &TaskRoleHandler{taskRoleService: taskRoleService}
}

type roleRequestBody struct {
	Name               string               `json:"name" binding:"required"`
	Description        string               `json:"description"`
	Color              string               `json:"color"`
	Icon               string               `json:"icon"`
	EstimatedDuration  *taskDurationRequest `json:"estimated_duration"`
	DefaultAssigneeIDs []uint64             `json:"default_assignee_ids"`
}

func (b roleRequestBody) toInput() services.RoleInput {
	input := services.RoleInput{
		Name:               b.Name,
		Description:        b.Description,
		Color:              b.Color,
		Icon:               b.Icon,
		DefaultAssigneeIDs: b.DefaultAssigneeIDs,
	}
	if b.EstimatedDuration != nil {
		input.EstimatedDuration = &models.Duration{
			Value: b.EstimatedDuration.Value,
			Unit:  b.EstimatedDuration.Unit,
		}
	}
	return input
}

// ListRoles returns a project's workflow roles in stage order.
func (h *TaskRoleHandler) ListRoles(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	roles, err := h.taskRoleService.ListRoles(actor, projectID)
	if err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// CreateRole adds a workflow role to a project.
func (h *TaskRoleHandler) CreateRole(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	var req roleRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	role, err := h.taskRoleService.CreateRole(actor, projectID, req.toInput())
	if err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, role)
}

// UpdateRole updates a workflow role.
func (h *TaskRoleHandler) UpdateRole(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	roleID, err := strconv.ParseUint(c.Param("roleId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid role ID")
		return
	}

	var req roleRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	role, err := h.taskRoleService.UpdateRole(actor, projectID, roleID, req.toInput())
	if err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, role)
}

// DeleteRole deactivates a workflow role.
func (h *TaskRoleHandler) DeleteRole(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	roleID, err := strconv.ParseUint(c.Param("roleId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid role ID")
		return
	}

	if err := h.taskRoleService.DeleteRole(actor, projectID, roleID); err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role deleted successfully"})
}

// ReorderRoles applies a new stage order to a project's roles.
func (h *TaskRoleHandler) ReorderRoles(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	type ReorderRequest struct {
		Roles []struct {
			RoleID uint64 `json:"role_id" binding:"required"`
			Order  int    `json:"order"`
		} `json:"roles" binding:"required"`
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	orders := make([]services.RoleOrderInput, len(req.Roles))
	for i, r := range req.Roles {
		orders[i] = services.RoleOrderInput{RoleID: r.RoleID, Order: r.Order}
	}

	roles, err := h.taskRoleService.ReorderRoles(actor, projectID, orders)
	if err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// InitializeDefaultRoles seeds the standard role set for a project.
func (h *TaskRoleHandler) InitializeDefaultRoles(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	roles, err := h.taskRoleService.InitializeDefaultRoles(actor, projectID)
	if err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"roles": roles})
}

// SuggestRoles asks the AI service for a role breakdown of a project
// description.
func (h *TaskRoleHandler) SuggestRoles(c *gin.Context) {
	actor, projectID, ok := roleProjectRequest(c)
	if !ok {
		return
	}

	type SuggestRequest struct {
		Description string `json:"description" binding:"required"`
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	suggestions, err := h.taskRoleService.SuggestRoles(c.Request.Context(), actor, projectID, req.Description)
	if err != nil {
		respondRoleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func roleProjectRequest(c *gin.Context) (*models.User, uint64, bool) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return nil, 0, false
	}

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return nil, 0, false
	}
	return actor, projectID, true
}

func respondRoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectAccessDenied),
		errors.Is(err, services.ErrOnlyOwnerManagesRoles):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrRoleNameRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrRolesAlreadyExist):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured),
		errors.Is(err, services.ErrAINoRolesSuggested):
		apierrors.InvalidState(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
