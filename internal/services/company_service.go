package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidCompanyName      = errors.New("company name cannot be empty")
	ErrCompanyPermissionDenied = errors.New("user does not have the required company permission")
	ErrMemberNotFound          = errors.New("company member not found")
	ErrAlreadyCompanyMember    = errors.New("user is already a member of this company")
	ErrCannotRemoveOwner       = errors.New("cannot remove the company owner")
	ErrDesignationNotFound     = errors.New("designation not found")
	ErrDesignationInUse        = errors.New("designation is still assigned to members")
	ErrHolidayNotFound         = errors.New("holiday not found")
	ErrUserNotFound            = errors.New("user not found")
)

// CompanyService provides business logic for companies, their designations,
// members and settings. All capability checks go through the permission
// resolver so the superadmin and owner overrides apply uniformly.
type CompanyService struct {
	companyRepo repository.CompanyRepository
	userRepo    repository.UserRepository
	permissions *PermissionService
	notifier    *NotificationService
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(
	companyRepo repository.CompanyRepository,
	userRepo repository.UserRepository,
	permissions *PermissionService,
	notifier *NotificationService,
) *CompanyService {
	return &CompanyService{
		companyRepo: companyRepo,
		userRepo:    userRepo,
		permissions: permissions,
		notifier:    notifier,
	}
}

// CreateCompanyInput represents parameters to create a new company.
type CreateCompanyInput struct {
	Name        string
	Description string
	Industry    string
	Website     string
	Currency    string
	OwnerID     uint64
}

// AddMemberInput adds a user to a company by email.
type AddMemberInput struct {
	Email       string
	Designation string
	Salary      float64
}

// SalaryUpdateInput records a new salary for a member.
type SalaryUpdateInput struct {
	MemberID  uint64
	NewSalary float64
	Reason    string
}

// DesignationInput represents input for creating or updating a designation.
type DesignationInput struct {
	Name        string
	Description string
	Level       int
	Permissions models.PermissionSet
}

// CreateCompany creates a company, seeds the default designation set and
// enrolls the owner as a Managing Director.
func (s *CompanyService) CreateCompany(input CreateCompanyInput) (*models.Company, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidCompanyName
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	company := &models.Company{
		Name:         input.Name,
		Description:  input.Description,
		Industry:     input.Industry,
		Website:      input.Website,
		Currency:     currency,
		OwnerID:      input.OwnerID,
		Designations: models.DefaultDesignations(),
	}

	if err := s.companyRepo.Create(company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	member := &models.CompanyMember{
		CompanyID:   company.ID,
		UserID:      input.OwnerID,
		Designation: "Managing Director",
		JoinedAt:    time.Now(),
	}
	if err := s.companyRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to enroll owner: %w", err)
	}

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User")
}

// GetCompany returns a company with its designations and members.
func (s *CompanyService) GetCompany(actor *models.User, companyID uint64) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.ViewEmployeeList && company.OwnerID != actor.ID && !actor.IsSuperadmin() {
		return nil, ErrCompanyPermissionDenied
	}
	return company, nil
}

// ListCompaniesForUser returns companies the user owns or belongs to.
func (s *CompanyService) ListCompaniesForUser(userID uint64) ([]models.Company, error) {
	companies, err := s.companyRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// AddMember adds a user to a company by email. Requires the addEmployee
// capability. An initial salary opens the member's salary history.
func (s *CompanyService) AddMember(actor *models.User, companyID uint64, input AddMemberInput) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.AddEmployee {
		return nil, ErrCompanyPermissionDenied
	}

	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if company.FindMember(user.ID) != nil {
		return nil, ErrAlreadyCompanyMember
	}

	designation := input.Designation
	if designation == "" {
		designation = "Employee"
	}

	member := &models.CompanyMember{
		CompanyID:     company.ID,
		UserID:        user.ID,
		Designation:   designation,
		CurrentSalary: input.Salary,
		JoinedAt:      time.Now(),
	}
	if err := s.companyRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if input.Salary > 0 {
		record := &models.SalaryRecord{
			MemberID:      member.ID,
			Amount:        input.Salary,
			EffectiveDate: time.Now(),
			Reason:        "Initial salary",
			UpdatedByID:   &actor.ID,
		}
		if err := s.companyRepo.AddSalaryRecord(record); err != nil {
			return nil, fmt.Errorf("failed to record initial salary: %w", err)
		}
	}

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User")
}

// UpdateMemberSalary appends a salary history record and updates the current
// salary. Requires the editEmployee capability. The member is notified.
func (s *CompanyService) UpdateMemberSalary(actor *models.User, companyID uint64, input SalaryUpdateInput) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.EditEmployee {
		return nil, ErrCompanyPermissionDenied
	}

	member := findMemberByID(company, input.MemberID)
	if member == nil {
		return nil, ErrMemberNotFound
	}

	reason := input.Reason
	if reason == "" {
		reason = "Salary update"
	}

	record := &models.SalaryRecord{
		MemberID:      member.ID,
		Amount:        input.NewSalary,
		EffectiveDate: time.Now(),
		Reason:        reason,
		UpdatedByID:   &actor.ID,
	}
	if err := s.companyRepo.AddSalaryRecord(record); err != nil {
		return nil, fmt.Errorf("failed to record salary: %w", err)
	}

	member.CurrentSalary = input.NewSalary
	if err := s.companyRepo.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	s.notifyMember(member.UserID, company, models.NotificationSalaryUpdate,
		"Salary updated",
		fmt.Sprintf("Your salary at %q has been updated", company.Name))

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User", "Members.SalaryHistory")
}

// UpdateMemberDesignation changes a member's designation string. Requires the
// editEmployee capability. The designation is a free-form name reference; it
// is not validated against the designation list.
func (s *CompanyService) UpdateMemberDesignation(actor *models.User, companyID, memberID uint64, designation string) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.EditEmployee {
		return nil, ErrCompanyPermissionDenied
	}

	member := findMemberByID(company, memberID)
	if member == nil {
		return nil, ErrMemberNotFound
	}

	member.Designation = designation
	if err := s.companyRepo.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	s.notifyMember(member.UserID, company, models.NotificationRoleChange,
		"Designation changed",
		fmt.Sprintf("Your designation at %q is now %q", company.Name, designation))

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User")
}

// RemoveMember removes a member from the company along with their salary
// history. Requires the editEmployee capability. The owner cannot be removed.
func (s *CompanyService) RemoveMember(actor *models.User, companyID, userID uint64) error {
	company, err := s.findCompany(companyID)
	if err != nil {
		return err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.EditEmployee {
		return ErrCompanyPermissionDenied
	}

	if company.OwnerID == userID {
		return ErrCannotRemoveOwner
	}
	if company.FindMember(userID) == nil {
		return ErrMemberNotFound
	}

	if err := s.companyRepo.RemoveMember(companyID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// AddDesignation creates a designation. Requires the createDesignation
// capability.
func (s *CompanyService) AddDesignation(actor *models.User, companyID uint64, input DesignationInput) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.CreateDesignation {
		return nil, ErrCompanyPermissionDenied
	}

	level := input.Level
	if level == 0 {
		level = 5
	}

	designation := &models.Designation{
		CompanyID:   company.ID,
		Name:        input.Name,
		Description: input.Description,
		Level:       level,
		Permissions: input.Permissions,
	}
	if err := s.companyRepo.AddDesignation(designation); err != nil {
		return nil, fmt.Errorf("failed to add designation: %w", err)
	}

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User")
}

// UpdateDesignationPermissions replaces a designation's permission set.
// Requires the editDesignation capability.
func (s *CompanyService) UpdateDesignationPermissions(actor *models.User, companyID, designationID uint64, permissions models.PermissionSet) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.EditDesignation {
		return nil, ErrCompanyPermissionDenied
	}

	designation, err := s.companyRepo.FindDesignation(companyID, designationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDesignationNotFound
		}
		return nil, fmt.Errorf("failed to find designation: %w", err)
	}

	designation.Permissions = permissions
	if err := s.companyRepo.UpdateDesignation(designation); err != nil {
		return nil, fmt.Errorf("failed to update designation: %w", err)
	}

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User")
}

// DeleteDesignation removes a designation. Requires the deleteDesignation
// capability. Rejected while any member still holds the designation; the
// wrapped error carries the member count.
func (s *CompanyService) DeleteDesignation(actor *models.User, companyID, designationID uint64) error {
	company, err := s.findCompany(companyID)
	if err != nil {
		return err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.DeleteDesignation {
		return ErrCompanyPermissionDenied
	}

	designation, err := s.companyRepo.FindDesignation(companyID, designationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDesignationNotFound
		}
		return fmt.Errorf("failed to find designation: %w", err)
	}

	count, err := s.companyRepo.CountMembersByDesignation(companyID, designation.Name)
	if err != nil {
		return fmt.Errorf("failed to count designation members: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d member(s)", ErrDesignationInUse, count)
	}

	if err := s.companyRepo.DeleteDesignation(companyID, designationID); err != nil {
		return fmt.Errorf("failed to delete designation: %w", err)
	}
	return nil
}

// UpdateSettings replaces the company-wide time tracking settings. Requires
// the manageCompanySettings capability.
func (s *CompanyService) UpdateSettings(actor *models.User, companyID uint64, settings models.CompanySettings) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.ManageCompanySettings {
		return nil, ErrCompanyPermissionDenied
	}

	company.Settings = settings
	if err := s.companyRepo.Update(company); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return company, nil
}

// AddHoliday adds a holiday to the company calendar. Requires the
// manageCompanySettings capability.
func (s *CompanyService) AddHoliday(actor *models.User, companyID uint64, holiday models.Holiday) (*models.Company, error) {
	company, err := s.findCompany(companyID)
	if err != nil {
		return nil, err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.ManageCompanySettings {
		return nil, ErrCompanyPermissionDenied
	}

	holiday.CompanyID = company.ID
	if err := s.companyRepo.AddHoliday(&holiday); err != nil {
		return nil, fmt.Errorf("failed to add holiday: %w", err)
	}

	return s.companyRepo.FindByID(company.ID, "Owner", "Holidays")
}

// RemoveHoliday removes a holiday from the company calendar. Requires the
// manageCompanySettings capability.
func (s *CompanyService) RemoveHoliday(actor *models.User, companyID, holidayID uint64) error {
	company, err := s.findCompany(companyID)
	if err != nil {
		return err
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.ManageCompanySettings {
		return ErrCompanyPermissionDenied
	}

	if err := s.companyRepo.RemoveHoliday(companyID, holidayID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHolidayNotFound
		}
		return fmt.Errorf("failed to remove holiday: %w", err)
	}
	return nil
}

func (s *CompanyService) findCompany(companyID uint64) (*models.Company, error) {
	company, err := s.companyRepo.FindByID(companyID, "Owner", "Designations", "Members", "Members.User", "Holidays")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	return company, nil
}

func (s *CompanyService) notifyMember(userID uint64, company *models.Company, nType models.NotificationType, title, message string) {
	if s.notifier == nil {
		return
	}
	companyID := company.ID
	err := s.notifier.Notify(&models.Notification{
		UserID:       userID,
		Type:         nType,
		Title:        title,
		Message:      message,
		RelatedID:    &companyID,
		RelatedModel: models.RelatedCompany,
	})
	if err != nil {
		// best-effort, the member update already succeeded
		log.Printf("failed to notify user %d: %v", userID, err)
	}
}

func findMemberByID(company *models.Company, memberID uint64) *models.CompanyMember {
	for i := range company.Members {
		if company.Members[i].ID == memberID {
			return &company.Members[i]
		}
	}
	return nil
}
