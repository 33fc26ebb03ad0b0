package services

import (
	"testing"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskServiceTestSuite exercises task CRUD and the dependency gate.
type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService

	owner    *models.User
	project  *models.Project
	statuses []models.TaskStatus
}

func (s *TaskServiceTestSuite) SetupTest() {
	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	err = s.db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMember{},
		&models.Designation{},
		&models.Project{},
		&models.ProjectMember{},
		&models.TaskStatus{},
		&models.TaskRole{},
		&models.Task{},
		&models.RoleAssignment{},
		&models.HandoffFile{},
		&models.HandoffURL{},
	)
	s.Require().NoError(err)

	taskRepo := repository.NewTaskRepository(s.db)
	projectRepo := repository.NewProjectRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)
	companyRepo := repository.NewCompanyRepository(s.db)
	permissions := NewPermissionService(companyRepo, projectRepo)
	s.service = NewTaskService(taskRepo, projectRepo, userRepo, permissions)

	s.owner = &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x"}
	s.Require().NoError(s.db.Create(s.owner).Error)

	s.project = &models.Project{Name: "Launch", OwnerID: s.owner.ID}
	s.Require().NoError(s.db.Create(s.project).Error)

	s.statuses, err = projectRepo.SeedDefaultStatuses(s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(s.statuses, 4)
}

func (s *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *TaskServiceTestSuite) completedStatusID() uint64 {
	return s.statuses[len(s.statuses)-1].ID
}

func (s *TaskServiceTestSuite) TestCreateTaskDefaults() {
	task, err := s.service.CreateTask(s.owner, CreateTaskInput{
		Title:     "First task",
		ProjectID: s.project.ID,
	})
	s.Require().NoError(err)

	s.Require().NotNil(task.StatusID)
	s.Equal(s.statuses[0].ID, *task.StatusID)
	s.Equal(models.PriorityMedium, task.Priority)
	s.Equal(s.owner.ID, task.CreatedByID)
}

func (s *TaskServiceTestSuite) TestCreateTaskRequiresTitle() {
	_, err := s.service.CreateTask(s.owner, CreateTaskInput{ProjectID: s.project.ID})
	s.ErrorIs(err, ErrTitleRequired)
}

func (s *TaskServiceTestSuite) TestCreateTaskDeniedWithoutAccess() {
	stranger := &models.User{Name: "Stranger", Email: "stranger@example.com", PasswordHash: "x"}
	s.Require().NoError(s.db.Create(stranger).Error)

	_, err := s.service.CreateTask(stranger, CreateTaskInput{
		Title:     "Sneaky",
		ProjectID: s.project.ID,
	})
	s.ErrorIs(err, ErrProjectAccessDenied)
}

func (s *TaskServiceTestSuite) TestDependencyGateBlocksCompletion() {
	a, err := s.service.CreateTask(s.owner, CreateTaskInput{Title: "Task A", ProjectID: s.project.ID})
	s.Require().NoError(err)
	b, err := s.service.CreateTask(s.owner, CreateTaskInput{
		Title:        "Task B",
		ProjectID:    s.project.ID,
		DependsOnIDs: []uint64{a.ID},
	})
	s.Require().NoError(err)

	completed := s.completedStatusID()

	// Completing B while A is still open is blocked.
	check, err := s.service.CanTransition(s.owner, b.ID, completed)
	s.Require().NoError(err)
	s.False(check.Allowed)
	s.Require().Len(check.BlockingTasks, 1)
	s.Equal(a.ID, check.BlockingTasks[0].ID)
	s.Equal("Task A", check.BlockingTasks[0].Title)

	_, err = s.service.UpdateTask(s.owner, b.ID, UpdateTaskInput{StatusID: &completed})
	s.ErrorIs(err, ErrDependenciesBlock)

	// Moving B anywhere else is not gated.
	inProgress := s.statuses[1].ID
	check, err = s.service.CanTransition(s.owner, b.ID, inProgress)
	s.Require().NoError(err)
	s.True(check.Allowed)
	s.Empty(check.BlockingTasks)

	// Once A is completed the gate opens.
	_, err = s.service.UpdateTask(s.owner, a.ID, UpdateTaskInput{StatusID: &completed})
	s.Require().NoError(err)

	updated, err := s.service.UpdateTask(s.owner, b.ID, UpdateTaskInput{StatusID: &completed})
	s.Require().NoError(err)
	s.Require().NotNil(updated.StatusID)
	s.Equal(completed, *updated.StatusID)
}

func (s *TaskServiceTestSuite) TestDependencyGateIgnoresTasksWithoutDependencies() {
	a, err := s.service.CreateTask(s.owner, CreateTaskInput{Title: "Standalone", ProjectID: s.project.ID})
	s.Require().NoError(err)

	completed := s.completedStatusID()
	check, err := s.service.CanTransition(s.owner, a.ID, completed)
	s.Require().NoError(err)
	s.True(check.Allowed)
}

func (s *TaskServiceTestSuite) TestSelfDependencyRejected() {
	a, err := s.service.CreateTask(s.owner, CreateTaskInput{Title: "Task A", ProjectID: s.project.ID})
	s.Require().NoError(err)

	_, err = s.service.UpdateTask(s.owner, a.ID, UpdateTaskInput{DependsOnIDs: []uint64{a.ID}})
	s.ErrorIs(err, ErrSelfDependency)
}

func (s *TaskServiceTestSuite) TestCrossProjectDependencyRejected() {
	other := &models.Project{Name: "Other", OwnerID: s.owner.ID}
	s.Require().NoError(s.db.Create(other).Error)
	foreign := &models.Task{Title: "Foreign", ProjectID: other.ID, CreatedByID: s.owner.ID}
	s.Require().NoError(s.db.Create(foreign).Error)

	_, err := s.service.CreateTask(s.owner, CreateTaskInput{
		Title:        "Task A",
		ProjectID:    s.project.ID,
		DependsOnIDs: []uint64{foreign.ID},
	})
	s.ErrorIs(err, ErrInvalidDependency)
}

func (s *TaskServiceTestSuite) TestUpdateTaskStatusFromOtherProject() {
	other := &models.Project{Name: "Other", OwnerID: s.owner.ID}
	s.Require().NoError(s.db.Create(other).Error)
	foreignStatus := &models.TaskStatus{ProjectID: other.ID, Name: "Elsewhere"}
	s.Require().NoError(s.db.Create(foreignStatus).Error)

	a, err := s.service.CreateTask(s.owner, CreateTaskInput{Title: "Task A", ProjectID: s.project.ID})
	s.Require().NoError(err)

	_, err = s.service.UpdateTask(s.owner, a.ID, UpdateTaskInput{StatusID: &foreignStatus.ID})
	s.ErrorIs(err, ErrStatusWrongProject)
}

func (s *TaskServiceTestSuite) TestDeleteTask() {
	a, err := s.service.CreateTask(s.owner, CreateTaskInput{Title: "Task A", ProjectID: s.project.ID})
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteTask(s.owner, a.ID))

	_, err = s.service.GetTask(s.owner, a.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
