package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mwrueen/offtix-back/internal/constants"
	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotYours   = errors.New("this invitation is not addressed to you")
	ErrInvitationProcessed  = errors.New("invitation has already been processed")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrInvitationPending    = errors.New("an invitation has already been sent to this email")
	ErrUnknownDesignation   = errors.New("designation does not exist in this company")
	ErrInvitationEmailEmpty = errors.New("email is required")
)

// InvitationService manages email invitations into companies. Accepting an
// invitation enrolls the user as a company member with the invited
// designation and salary.
type InvitationService struct {
	invitationRepo repository.InvitationRepository
	companyRepo    repository.CompanyRepository
	userRepo       repository.UserRepository
	permissions    *PermissionService
	notifier       *NotificationService
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	companyRepo repository.CompanyRepository,
	userRepo repository.UserRepository,
	permissions *PermissionService,
	notifier *NotificationService,
) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		companyRepo:    companyRepo,
		userRepo:       userRepo,
		permissions:    permissions,
		notifier:       notifier,
	}
}

// SendInvitationInput represents parameters to invite a user into a company.
type SendInvitationInput struct {
	Email       string
	Designation string
	Salary      float64
}

// SendInvitation creates a pending invitation. Requires the addEmployee
// capability; the designation must exist in the company at send time.
func (s *InvitationService) SendInvitation(actor *models.User, companyID uint64, input SendInvitationInput) (*models.Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrInvitationEmailEmpty
	}

	company, err := s.companyRepo.FindByID(companyID, "Designations", "Members", "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to find company: %w", err)
	}

	perms := s.permissions.ResolveCompanyPermissions(actor, company)
	if !perms.AddEmployee {
		return nil, ErrCompanyPermissionDenied
	}

	if company.FindDesignation(input.Designation) == nil {
		return nil, ErrUnknownDesignation
	}

	for i := range company.Members {
		if strings.EqualFold(company.Members[i].User.Email, email) {
			return nil, ErrAlreadyCompanyMember
		}
	}

	if existing, err := s.invitationRepo.FindPending(companyID, email); err == nil {
		if !existing.Expired(time.Now()) {
			return nil, ErrInvitationPending
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}

	invitation := &models.Invitation{
		Token:       uuid.NewString(),
		CompanyID:   companyID,
		Email:       email,
		Designation: input.Designation,
		Salary:      input.Salary,
		Status:      models.InvitationPending,
		InvitedByID: actor.ID,
		ExpiresAt:   time.Now().AddDate(0, 0, constants.InvitationTTLDays),
	}
	if err := s.invitationRepo.Create(invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.notifyInvitee(email, invitation, company)

	return s.invitationRepo.FindByToken(invitation.Token)
}

// ListCompanyInvitations returns a company's invitations, newest first.
// Requires the viewEmployeeList capability.
func (s *InvitationService) ListCompanyInvitations(actor *models.User, companyID uint64) ([]models.Invitation, error) {
	perms, err := s.permissions.ResolveCompanyPermissionsByID(actor, companyID)
	if err != nil {
		return nil, err
	}
	if !perms.ViewEmployeeList {
		return nil, ErrCompanyPermissionDenied
	}

	invitations, err := s.invitationRepo.ListForCompany(companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// ListUserInvitations returns the user's pending, unexpired invitations.
func (s *InvitationService) ListUserInvitations(actor *models.User) ([]models.Invitation, error) {
	invitations, err := s.invitationRepo.ListPendingByEmail(strings.ToLower(actor.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	now := time.Now()
	valid := make([]models.Invitation, 0, len(invitations))
	for _, inv := range invitations {
		if !inv.Expired(now) {
			valid = append(valid, inv)
		}
	}
	return valid, nil
}

// AcceptInvitation enrolls the actor as a company member with the invited
// designation and salary.
func (s *InvitationService) AcceptInvitation(actor *models.User, token string) (*models.Company, error) {
	invitation, err := s.findForActor(actor, token)
	if err != nil {
		return nil, err
	}
	if invitation.Expired(time.Now()) {
		return nil, ErrInvitationExpired
	}

	company, err := s.companyRepo.FindByID(invitation.CompanyID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company.FindMember(actor.ID) != nil {
		return nil, ErrAlreadyCompanyMember
	}

	member := &models.CompanyMember{
		CompanyID:     company.ID,
		UserID:        actor.ID,
		Designation:   invitation.Designation,
		CurrentSalary: invitation.Salary,
		JoinedAt:      time.Now(),
	}
	if err := s.companyRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to enroll member: %w", err)
	}

	if invitation.Salary > 0 {
		record := &models.SalaryRecord{
			MemberID:      member.ID,
			Amount:        invitation.Salary,
			EffectiveDate: time.Now(),
			Reason:        "Initial salary",
			UpdatedByID:   &invitation.InvitedByID,
		}
		if err := s.companyRepo.AddSalaryRecord(record); err != nil {
			return nil, fmt.Errorf("failed to record initial salary: %w", err)
		}
	}

	invitation.Status = models.InvitationAccepted
	if err := s.invitationRepo.Update(invitation); err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	return s.companyRepo.FindByID(company.ID, "Owner", "Designations", "Members", "Members.User")
}

// DeclineInvitation marks a pending invitation as declined.
func (s *InvitationService) DeclineInvitation(actor *models.User, token string) error {
	invitation, err := s.findForActor(actor, token)
	if err != nil {
		return err
	}

	invitation.Status = models.InvitationDeclined
	if err := s.invitationRepo.Update(invitation); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

func (s *InvitationService) findForActor(actor *models.User, token string) (*models.Invitation, error) {
	invitation, err := s.invitationRepo.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	if !strings.EqualFold(invitation.Email, actor.Email) {
		return nil, ErrInvitationNotYours
	}
	if invitation.Status != models.InvitationPending {
		return nil, ErrInvitationProcessed
	}
	return invitation, nil
}

func (s *InvitationService) notifyInvitee(email string, invitation *models.Invitation, company *models.Company) {
	if s.notifier == nil {
		return
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		// The invitee has no account yet; they see the invitation after
		// registering with this email.
		return
	}

	invitationID := invitation.ID
	err = s.notifier.Notify(&models.Notification{
		UserID:       user.ID,
		Type:         models.NotificationInvitation,
		Title:        "Company Invitation",
		Message:      fmt.Sprintf("You have been invited to join %s as %s", company.Name, invitation.Designation),
		RelatedID:    &invitationID,
		RelatedModel: models.RelatedInvitation,
	})
	if err != nil {
		log.Printf("failed to notify invitee %s: %v", email, err)
	}
}
