package services

import (
	"testing"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ProjectServiceTestSuite exercises project creation and its company
// capability gate.
type ProjectServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	service   *ProjectService
	companies *CompanyService

	owner *models.User
}

func (s *ProjectServiceTestSuite) SetupTest() {
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
		&models.TaskStatus{},
		&models.Notification{},
	)
	s.Require().NoError(err)

	companyRepo := repository.NewCompanyRepository(s.db)
	projectRepo := repository.NewProjectRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)
	notificationRepo := repository.NewNotificationRepository(s.db)

	permissions := NewPermissionService(companyRepo, projectRepo)
	notifier := NewNotificationService(notificationRepo, nil)
	s.service = NewProjectService(projectRepo, userRepo, permissions, notifier)
	s.companies = NewCompanyService(companyRepo, userRepo, permissions, notifier)

	s.owner = s.createUser("owner@example.com")
}

func (s *ProjectServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *ProjectServiceTestSuite) createUser(email string) *models.User {
	user := &models.User{Name: email, Email: email, PasswordHash: "hashedpassword"}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

// createCompanyWith enrolls each user under the given default designation.
func (s *ProjectServiceTestSuite) createCompanyWith(members map[*models.User]string) *models.Company {
	company, err := s.companies.CreateCompany(CreateCompanyInput{
		Name:    "Acme",
		OwnerID: s.owner.ID,
	})
	s.Require().NoError(err)

	for user, designation := range members {
		_, err := s.companies.AddMember(s.owner, company.ID, AddMemberInput{
			Email:       user.Email,
			Designation: designation,
			Salary:      40000,
		})
		s.Require().NoError(err)
	}
	return company
}

func (s *ProjectServiceTestSuite) TestCreateCompanyProjectByCapability() {
	lead := s.createUser("lead@example.com")
	intern := s.createUser("intern@example.com")
	company := s.createCompanyWith(map[*models.User]string{
		lead:   "Project Manager",
		intern: "Employee",
	})

	project, err := s.service.CreateProject(lead, CreateProjectInput{
		Name:      "Website relaunch",
		CompanyID: &company.ID,
	})
	s.Require().NoError(err)
	s.Equal(lead.ID, project.OwnerID)
	s.Require().NotNil(project.CompanyID)
	s.Equal(company.ID, *project.CompanyID)

	// The new project gets the default status pipeline.
	var statuses []models.TaskStatus
	s.Require().NoError(s.db.Where("project_id = ?", project.ID).Order("sort_order").Find(&statuses).Error)
	s.Len(statuses, 4)

	_, err = s.service.CreateProject(intern, CreateProjectInput{
		Name:      "Shadow project",
		CompanyID: &company.ID,
	})
	s.ErrorIs(err, ErrCompanyPermissionDenied)
}

func (s *ProjectServiceTestSuite) TestCreatePersonalProject() {
	anyone := s.createUser("solo@example.com")

	project, err := s.service.CreateProject(anyone, CreateProjectInput{Name: "Side quest"})
	s.Require().NoError(err)
	s.Nil(project.CompanyID)
	s.Equal(anyone.ID, project.OwnerID)
}

func (s *ProjectServiceTestSuite) TestCreateProjectRequiresName() {
	_, err := s.service.CreateProject(s.owner, CreateProjectInput{Name: "   "})
	s.ErrorIs(err, ErrInvalidProjectName)
}

func (s *ProjectServiceTestSuite) TestUpdateProjectOwnerOnly() {
	member := s.createUser("member@example.com")

	project, err := s.service.CreateProject(s.owner, CreateProjectInput{Name: "Launch"})
	s.Require().NoError(err)
	s.Require().NoError(s.db.Create(&models.ProjectMember{
		ProjectID: project.ID,
		UserID:    member.ID,
	}).Error)

	name := "Renamed"
	_, err = s.service.UpdateProject(member, project.ID, UpdateProjectInput{Name: &name})
	s.ErrorIs(err, ErrNotProjectOwner)

	updated, err := s.service.UpdateProject(s.owner, project.ID, UpdateProjectInput{Name: &name})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}
