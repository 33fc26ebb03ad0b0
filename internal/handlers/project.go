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

// ProjectHandler coordinates project-related HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProject creates a project, optionally inside a company.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateProjectRequest struct {
		Name        string     `json:"name" binding:"required,min=1,max=255"`
		Description string     `json:"description"`
		CompanyID   *uint64    `json:"company_id"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProject returns a project with its team.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(actor, projectID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// UpdateProject updates project metadata.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(actor, projectID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// DeleteProject removes a project.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(actor, projectID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// AddMember adds a user to the project team.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	actor, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.AddMember(actor, projectID, req.UserID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// RemoveMember removes a user from the project team.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	actor, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	project, err := h.projectService.RemoveMember(actor, projectID, userID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// ListStatuses returns the project's ordered task status list.
func (h *ProjectHandler) ListStatuses(c *gin.Context) {
	actor, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	statuses, err := h.projectService.ListStatuses(actor, projectID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func projectRequest(c *gin.Context) (*models.User, uint64, bool) {
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

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrCompanyNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProjectMemberMissing):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectAccessDenied),
		errors.Is(err, services.ErrCompanyPermissionDenied),
		errors.Is(err, services.ErrNotProjectOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidProjectName):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAlreadyProjectMember):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
