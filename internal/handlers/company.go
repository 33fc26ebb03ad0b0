package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mwrueen/offtix-back/internal/dto"
	apierrors "github.com/mwrueen/offtix-back/internal/errors"
	"github.com/mwrueen/offtix-back/internal/middleware"
	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/services"
)

// CompanyHandler coordinates company-related HTTP handlers.
type CompanyHandler struct {
	companyService *services.CompanyService
	permissions    *services.PermissionService
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(companyService *services.CompanyService, permissions *services.PermissionService) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		permissions:    permissions,
	}
}

// CreateCompany creates a company owned by the current user.
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateCompanyRequest struct {
		Name        string `json:"name" binding:"required,min=1,max=255"`
		Description string `json:"description"`
		Industry    string `json:"industry"`
		Website     string `json:"website"`
		Currency    string `json:"currency"`
	}

	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.CreateCompany(services.CreateCompanyInput{
		Name:        req.Name,
		Description: req.Description,
		Industry:    req.Industry,
		Website:     req.Website,
		Currency:    req.Currency,
		OwnerID:     actor.ID,
	})
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusCreated, company)
}

// GetCompany returns a company with its designations and members.
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	company, err := h.companyService.GetCompany(actor, companyID)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// ListCompanies returns companies the current user owns or belongs to.
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	companies, err := h.companyService.ListCompaniesForUser(actor.ID)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

// GetMyPermissions returns the caller's effective capability set in the
// company.
func (h *CompanyHandler) GetMyPermissions(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	perms, err := h.permissions.ResolveCompanyPermissionsByID(actor, companyID)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// ListEmployees returns the company's member list. Salaries are included
// only for callers holding the editEmployee capability.
func (h *CompanyHandler) ListEmployees(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	company, err := h.companyService.GetCompany(actor, companyID)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	perms := h.permissions.ResolveCompanyPermissions(actor, company)
	c.JSON(http.StatusOK, dto.ToCompanyEmployeesDTO(company, perms.EditEmployee))
}

// AddMember adds a user to the company by email.
func (h *CompanyHandler) AddMember(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Email       string  `json:"email" binding:"required,email"`
		Designation string  `json:"designation"`
		Salary      float64 `json:"salary"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.AddMember(actor, companyID, services.AddMemberInput{
		Email:       req.Email,
		Designation: req.Designation,
		Salary:      req.Salary,
	})
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// UpdateMemberSalary records a new salary for a member.
func (h *CompanyHandler) UpdateMemberSalary(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	type SalaryRequest struct {
		MemberID  uint64  `json:"member_id" binding:"required"`
		NewSalary float64 `json:"new_salary" binding:"required"`
		Reason    string  `json:"reason"`
	}

	var req SalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.UpdateMemberSalary(actor, companyID, services.SalaryUpdateInput{
		MemberID:  req.MemberID,
		NewSalary: req.NewSalary,
		Reason:    req.Reason,
	})
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// UpdateMemberDesignation changes a member's designation.
func (h *CompanyHandler) UpdateMemberDesignation(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	type DesignationRequest struct {
		MemberID    uint64 `json:"member_id" binding:"required"`
		Designation string `json:"designation" binding:"required"`
	}

	var req DesignationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.UpdateMemberDesignation(actor, companyID, req.MemberID, req.Designation)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// RemoveMember removes an employee from the company.
func (h *CompanyHandler) RemoveMember(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.companyService.RemoveMember(actor, companyID, userID); err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Employee removed successfully"})
}

// AddDesignation creates a designation.
func (h *CompanyHandler) AddDesignation(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	type DesignationRequest struct {
		Name        string               `json:"name" binding:"required,min=1,max=255"`
		Description string               `json:"description"`
		Level       int                  `json:"level"`
		Permissions models.PermissionSet `json:"permissions"`
	}

	var req DesignationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.AddDesignation(actor, companyID, services.DesignationInput{
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		Permissions: req.Permissions,
	})
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// UpdateDesignationPermissions replaces a designation's permission set.
func (h *CompanyHandler) UpdateDesignationPermissions(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	designationID, err := strconv.ParseUint(c.Param("designationId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid designation ID")
		return
	}

	type PermissionsRequest struct {
		Permissions models.PermissionSet `json:"permissions" binding:"required"`
	}

	var req PermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.UpdateDesignationPermissions(actor, companyID, designationID, req.Permissions)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// DeleteDesignation removes a designation no member holds.
func (h *CompanyHandler) DeleteDesignation(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	designationID, err := strconv.ParseUint(c.Param("designationId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid designation ID")
		return
	}

	if err := h.companyService.DeleteDesignation(actor, companyID, designationID); err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Designation deleted successfully"})
}

// UpdateSettings replaces the company settings.
func (h *CompanyHandler) UpdateSettings(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	var settings models.CompanySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.UpdateSettings(actor, companyID, settings)
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// AddHoliday adds a holiday to the company calendar.
func (h *CompanyHandler) AddHoliday(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	type HolidayRequest struct {
		Name        string     `json:"name" binding:"required"`
		Description string     `json:"description"`
		Date        *time.Time `json:"date"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		IsRange     bool       `json:"is_range"`
	}

	var req HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.AddHoliday(actor, companyID, models.Holiday{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsRange:     req.IsRange,
	})
	if err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

// RemoveHoliday removes a holiday from the company calendar.
func (h *CompanyHandler) RemoveHoliday(c *gin.Context) {
	actor, companyID, ok := companyRequest(c)
	if !ok {
		return
	}

	holidayID, err := strconv.ParseUint(c.Param("holidayId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid holiday ID")
		return
	}

	if err := h.companyService.RemoveHoliday(actor, companyID, holidayID); err != nil {
		respondCompanyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Holiday removed successfully"})
}

func companyRequest(c *gin.Context) (*models.User, uint64, bool) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return nil, 0, false
	}

	companyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid company ID")
		return nil, 0, false
	}
	return actor, companyID, true
}

func respondCompanyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCompanyNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrDesignationNotFound),
		errors.Is(err, services.ErrHolidayNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCompanyPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidCompanyName):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAlreadyCompanyMember):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrCannotRemoveOwner),
		errors.Is(err, services.ErrDesignationInUse):
		apierrors.InvalidState(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
