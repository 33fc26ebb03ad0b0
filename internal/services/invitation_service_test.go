package services

import (
	"testing"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InvitationServiceTestSuite exercises the invitation lifecycle: send,
// accept, decline and the expiry rules.
type InvitationServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *InvitationService

	owner   *models.User
	invitee *models.User
	company *models.Company
}

func (s *InvitationServiceTestSuite) SetupTest() {
	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	err = s.db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMember{},
		&models.Designation{},
		&models.SalaryRecord{},
		&models.Holiday{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Invitation{},
		&models.Notification{},
	)
	s.Require().NoError(err)

	invitationRepo := repository.NewInvitationRepository(s.db)
	companyRepo := repository.NewCompanyRepository(s.db)
	projectRepo := repository.NewProjectRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)
	notificationRepo := repository.NewNotificationRepository(s.db)

	permissions := NewPermissionService(companyRepo, projectRepo)
	notifier := NewNotificationService(notificationRepo, nil)
	s.service = NewInvitationService(invitationRepo, companyRepo, userRepo, permissions, notifier)

	s.owner = s.createUser("owner@example.com")
	s.invitee = s.createUser("invitee@example.com")

	s.company = &models.Company{
		Name:         "Acme",
		OwnerID:      s.owner.ID,
		Designations: models.DefaultDesignations(),
	}
	s.Require().NoError(s.db.Create(s.company).Error)
}

func (s *InvitationServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *InvitationServiceTestSuite) createUser(email string) *models.User {
	user := &models.User{Name: email, Email: email, PasswordHash: "hashedpassword"}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *InvitationServiceTestSuite) sendInvitation() *models.Invitation {
	invitation, err := s.service.SendInvitation(s.owner, s.company.ID, SendInvitationInput{
		Email:       "Invitee@Example.com", // mixed case on purpose
		Designation: "Employee",
		Salary:      45000,
	})
	s.Require().NoError(err)
	return invitation
}

func (s *InvitationServiceTestSuite) TestSendInvitation() {
	invitation := s.sendInvitation()

	s.Equal("invitee@example.com", invitation.Email)
	s.Equal(models.InvitationPending, invitation.Status)
	s.NotEmpty(invitation.Token)
	s.True(invitation.ExpiresAt.After(time.Now()))

	// The invitee already has an account, so they are notified directly.
	var notifications []models.Notification
	s.Require().NoError(s.db.Where("user_id = ?", s.invitee.ID).Find(&notifications).Error)
	s.Require().Len(notifications, 1)
	s.Equal(models.NotificationInvitation, notifications[0].Type)
}

func (s *InvitationServiceTestSuite) TestSendRequiresCapability() {
	outsider := s.createUser("outsider@example.com")

	_, err := s.service.SendInvitation(outsider, s.company.ID, SendInvitationInput{
		Email:       s.invitee.Email,
		Designation: "Employee",
	})
	s.ErrorIs(err, ErrCompanyPermissionDenied)
}

func (s *InvitationServiceTestSuite) TestSendRejectsUnknownDesignation() {
	_, err := s.service.SendInvitation(s.owner, s.company.ID, SendInvitationInput{
		Email:       s.invitee.Email,
		Designation: "Archduke",
	})
	s.ErrorIs(err, ErrUnknownDesignation)
}

func (s *InvitationServiceTestSuite) TestSendRejectsDuplicatePending() {
	s.sendInvitation()

	_, err := s.service.SendInvitation(s.owner, s.company.ID, SendInvitationInput{
		Email:       s.invitee.Email,
		Designation: "Employee",
	})
	s.ErrorIs(err, ErrInvitationPending)
}

func (s *InvitationServiceTestSuite) TestAcceptEnrollsMember() {
	invitation := s.sendInvitation()

	company, err := s.service.AcceptInvitation(s.invitee, invitation.Token)
	s.Require().NoError(err)

	member := company.FindMember(s.invitee.ID)
	s.Require().NotNil(member)
	s.Equal("Employee", member.Designation)
	s.Equal(45000.0, member.CurrentSalary)

	var records []models.SalaryRecord
	s.Require().NoError(s.db.Where("member_id = ?", member.ID).Find(&records).Error)
	s.Require().Len(records, 1)
	s.Equal("Initial salary", records[0].Reason)
	s.Require().NotNil(records[0].UpdatedByID)
	s.Equal(s.owner.ID, *records[0].UpdatedByID)

	// Accepting twice fails: the invitation is no longer pending.
	_, err = s.service.AcceptInvitation(s.invitee, invitation.Token)
	s.ErrorIs(err, ErrInvitationProcessed)
}

func (s *InvitationServiceTestSuite) TestAcceptRejectsWrongUser() {
	invitation := s.sendInvitation()
	impostor := s.createUser("impostor@example.com")

	_, err := s.service.AcceptInvitation(impostor, invitation.Token)
	s.ErrorIs(err, ErrInvitationNotYours)
}

func (s *InvitationServiceTestSuite) TestAcceptRejectsExpired() {
	invitation := s.sendInvitation()
	s.Require().NoError(s.db.Model(&models.Invitation{}).
		Where("id = ?", invitation.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := s.service.AcceptInvitation(s.invitee, invitation.Token)
	s.ErrorIs(err, ErrInvitationExpired)
}

func (s *InvitationServiceTestSuite) TestDecline() {
	invitation := s.sendInvitation()

	s.Require().NoError(s.service.DeclineInvitation(s.invitee, invitation.Token))

	var stored models.Invitation
	s.Require().NoError(s.db.First(&stored, invitation.ID).Error)
	s.Equal(models.InvitationDeclined, stored.Status)
}

func (s *InvitationServiceTestSuite) TestListUserInvitationsFiltersExpired() {
	invitation := s.sendInvitation()

	list, err := s.service.ListUserInvitations(s.invitee)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.db.Model(&models.Invitation{}).
		Where("id = ?", invitation.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	list, err = s.service.ListUserInvitations(s.invitee)
	s.Require().NoError(err)
	s.Empty(list)
}

func TestInvitationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvitationServiceTestSuite))
}
