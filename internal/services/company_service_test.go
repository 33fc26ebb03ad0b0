package services

import (
	"testing"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/mwrueen/offtix-back/internal/utils"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CompanyServiceTestSuite exercises company management and its capability
// checks.
type CompanyServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *CompanyService
	notifier *NotificationService

	owner *models.User
}

func (s *CompanyServiceTestSuite) SetupTest() {
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
		&models.Notification{},
	)
	s.Require().NoError(err)

	companyRepo := repository.NewCompanyRepository(s.db)
	projectRepo := repository.NewProjectRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)
	notificationRepo := repository.NewNotificationRepository(s.db)

	permissions := NewPermissionService(companyRepo, projectRepo)
	s.notifier = NewNotificationService(notificationRepo, nil)
	s.service = NewCompanyService(companyRepo, userRepo, permissions, s.notifier)

	s.owner = s.createUser("owner@example.com")
}

func (s *CompanyServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *CompanyServiceTestSuite) createUser(email string) *models.User {
	user := &models.User{Name: email, Email: email, PasswordHash: "hashedpassword"}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *CompanyServiceTestSuite) createCompany() *models.Company {
	company, err := s.service.CreateCompany(CreateCompanyInput{
		Name:    "Acme",
		OwnerID: s.owner.ID,
	})
	s.Require().NoError(err)
	return company
}

func (s *CompanyServiceTestSuite) TestCreateCompanySeedsDefaults() {
	company := s.createCompany()

	s.Equal("USD", company.Currency)
	s.Len(company.Designations, 6)
	s.NotNil(company.FindDesignation("Managing Director"))
	s.NotNil(company.FindDesignation("Employee"))

	// The owner is enrolled at the top designation.
	member := company.FindMember(s.owner.ID)
	s.Require().NotNil(member)
	s.Equal("Managing Director", member.Designation)
}

func (s *CompanyServiceTestSuite) TestCreateCompanyRequiresName() {
	_, err := s.service.CreateCompany(CreateCompanyInput{Name: "  ", OwnerID: s.owner.ID})
	s.ErrorIs(err, ErrInvalidCompanyName)
}

func (s *CompanyServiceTestSuite) TestAddMember() {
	company := s.createCompany()
	employee := s.createUser("employee@example.com")

	updated, err := s.service.AddMember(s.owner, company.ID, AddMemberInput{
		Email:  employee.Email,
		Salary: 50000,
	})
	s.Require().NoError(err)

	member := updated.FindMember(employee.ID)
	s.Require().NotNil(member)
	s.Equal("Employee", member.Designation)
	s.Equal(50000.0, member.CurrentSalary)

	var records []models.SalaryRecord
	s.Require().NoError(s.db.Where("member_id = ?", member.ID).Find(&records).Error)
	s.Require().Len(records, 1)
	s.Equal("Initial salary", records[0].Reason)

	_, err = s.service.AddMember(s.owner, company.ID, AddMemberInput{Email: employee.Email})
	s.ErrorIs(err, ErrAlreadyCompanyMember)
}

func (s *CompanyServiceTestSuite) TestAddMemberRequiresCapability() {
	company := s.createCompany()
	employee := s.createUser("employee@example.com")
	outsider := s.createUser("outsider@example.com")

	_, err := s.service.AddMember(outsider, company.ID, AddMemberInput{Email: employee.Email})
	s.ErrorIs(err, ErrCompanyPermissionDenied)
}

func (s *CompanyServiceTestSuite) TestUpdateMemberSalary() {
	company := s.createCompany()
	employee := s.createUser("employee@example.com")
	updated, err := s.service.AddMember(s.owner, company.ID, AddMemberInput{
		Email:  employee.Email,
		Salary: 50000,
	})
	s.Require().NoError(err)
	member := updated.FindMember(employee.ID)
	s.Require().NotNil(member)

	after, err := s.service.UpdateMemberSalary(s.owner, company.ID, SalaryUpdateInput{
		MemberID:  member.ID,
		NewSalary: 60000,
		Reason:    "Annual review",
	})
	s.Require().NoError(err)

	refreshed := after.FindMember(employee.ID)
	s.Require().NotNil(refreshed)
	s.Equal(60000.0, refreshed.CurrentSalary)
	s.Len(refreshed.SalaryHistory, 2)

	// The member is told about the change.
	notifications, _, _, err := s.notifier.ListForUser(employee.ID, utils.PaginationParams{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(notifications, 1)
	s.Equal(models.NotificationSalaryUpdate, notifications[0].Type)
}

func (s *CompanyServiceTestSuite) TestRemoveMemberProtectsOwner() {
	company := s.createCompany()

	err := s.service.RemoveMember(s.owner, company.ID, s.owner.ID)
	s.ErrorIs(err, ErrCannotRemoveOwner)
}

func (s *CompanyServiceTestSuite) TestDeleteDesignationInUse() {
	company := s.createCompany()
	employee := s.createUser("employee@example.com")
	_, err := s.service.AddMember(s.owner, company.ID, AddMemberInput{
		Email:       employee.Email,
		Designation: "Team Lead",
	})
	s.Require().NoError(err)

	var teamLead models.Designation
	s.Require().NoError(s.db.Where("company_id = ? AND name = ?", company.ID, "Team Lead").First(&teamLead).Error)

	err = s.service.DeleteDesignation(s.owner, company.ID, teamLead.ID)
	s.ErrorIs(err, ErrDesignationInUse)

	// Free the designation and the delete goes through.
	_, err = s.service.UpdateMemberDesignation(s.owner, company.ID, findMemberID(s.T(), s.db, company.ID, employee.ID), "Employee")
	s.Require().NoError(err)
	s.Require().NoError(s.service.DeleteDesignation(s.owner, company.ID, teamLead.ID))
}

func (s *CompanyServiceTestSuite) TestUpdateSettings() {
	company := s.createCompany()

	updated, err := s.service.UpdateSettings(s.owner, company.ID, models.CompanySettings{
		DefaultDurationUnit: models.DurationDays,
		HoursPerDay:         6,
		DaysPerWeek:         4,
		WorkingHoursStart:   "10:00",
		WorkingHoursEnd:     "16:00",
	})
	s.Require().NoError(err)
	s.Equal(6, updated.Settings.HoursPerDay)
	s.Equal(models.DurationDays, updated.Settings.DefaultDurationUnit)
}

func (s *CompanyServiceTestSuite) TestHolidayLifecycle() {
	company := s.createCompany()

	updated, err := s.service.AddHoliday(s.owner, company.ID, models.Holiday{Name: "Founding Day"})
	s.Require().NoError(err)
	s.Require().Len(updated.Holidays, 1)

	s.Require().NoError(s.service.RemoveHoliday(s.owner, company.ID, updated.Holidays[0].ID))
	s.ErrorIs(s.service.RemoveHoliday(s.owner, company.ID, updated.Holidays[0].ID), ErrHolidayNotFound)
}

func findMemberID(t *testing.T, db *gorm.DB, companyID, userID uint64) uint64 {
	t.Helper()
	var member models.CompanyMember
	if err := db.Where("company_id = ? AND user_id = ?", companyID, userID).First(&member).Error; err != nil {
		t.Fatalf("member lookup failed: %v", err)
	}
	return member.ID
}

func TestCompanyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CompanyServiceTestSuite))
}
