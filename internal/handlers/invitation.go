package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/mwrueen/offtix-back/internal/errors"
	"github.com/mwrueen/offtix-back/internal/middleware"
	"github.com/mwrueen/offtix-back/internal/services"
)

// InvitationHandler handles company invitation HTTP requests.
type InvitationHandler struct {
	invitationService *services.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// SendInvitation invites a user into a company by email.
func (h *InvitationHandler) SendInvitation(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	companyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid company ID")
		return
	}

	type SendInvitationRequest struct {
		Email       string  `json:"email" binding:"required,email"`
		Designation string  `json:"designation" binding:"required"`
		Salary      float64 `json:"salary"`
	}

	var req SendInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invitation, err := h.invitationService.SendInvitation(actor, companyID, services.SendInvitationInput{
		Email:       req.Email,
		Designation: req.Designation,
		Salary:      req.Salary,
	})
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invitation)
}

// ListCompanyInvitations returns a company's invitations.
func (h *InvitationHandler) ListCompanyInvitations(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	companyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid company ID")
		return
	}

	invitations, err := h.invitationService.ListCompanyInvitations(actor, companyID)
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

// ListMyInvitations returns pending invitations addressed to the caller.
func (h *InvitationHandler) ListMyInvitations(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	invitations, err := h.invitationService.ListUserInvitations(actor)
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

// AcceptInvitation accepts a pending invitation and enrolls the caller in
// the company.
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	company, err := h.invitationService.AcceptInvitation(actor, c.Param("token"))
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invitation accepted",
		"company": company,
	})
}

// DeclineInvitation declines a pending invitation.
func (h *InvitationHandler) DeclineInvitation(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.invitationService.DeclineInvitation(actor, c.Param("token")); err != nil {
		respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation declined"})
}

func respondInvitationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrCompanyNotFound),
		errors.Is(err, services.ErrUnknownDesignation):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvitationNotYours),
		errors.Is(err, services.ErrCompanyPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvitationEmailEmpty):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAlreadyCompanyMember),
		errors.Is(err, services.ErrInvitationPending):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvitationProcessed),
		errors.Is(err, services.ErrInvitationExpired):
		apierrors.InvalidState(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
