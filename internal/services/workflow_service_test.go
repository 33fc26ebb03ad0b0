package services

import (
	"fmt"
	"testing"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/mwrueen/offtix-back/internal/utils"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// WorkflowServiceTestSuite exercises the sequential role workflow end to end
// against an in-memory database.
type WorkflowServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	workflow *WorkflowService
	notifier *NotificationService

	owner    *models.User
	designer *models.User
	backend  *models.User
	tester   *models.User
	project  *models.Project
	roles    []models.TaskRole
}

func (s *WorkflowServiceTestSuite) SetupTest() {
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
		&models.Notification{},
	)
	s.Require().NoError(err)

	taskRepo := repository.NewTaskRepository(s.db)
	taskRoleRepo := repository.NewTaskRoleRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)
	companyRepo := repository.NewCompanyRepository(s.db)
	projectRepo := repository.NewProjectRepository(s.db)
	notificationRepo := repository.NewNotificationRepository(s.db)

	permissions := NewPermissionService(companyRepo, projectRepo)
	s.notifier = NewNotificationService(notificationRepo, nil)
	s.workflow = NewWorkflowService(taskRepo, taskRoleRepo, userRepo, permissions, s.notifier)

	s.owner = s.createUser("owner@example.com")
	s.designer = s.createUser("designer@example.com")
	s.backend = s.createUser("backend@example.com")
	s.tester = s.createUser("tester@example.com")

	s.project = &models.Project{Name: "Launch", OwnerID: s.owner.ID}
	s.Require().NoError(s.db.Create(s.project).Error)
	for _, member := range []*models.User{s.designer, s.backend, s.tester} {
		s.Require().NoError(s.db.Create(&models.ProjectMember{
			ProjectID: s.project.ID,
			UserID:    member.ID,
		}).Error)
	}

	s.roles = nil
	for i, name := range []string{"Design", "Backend", "Testing"} {
		role := models.TaskRole{
			ProjectID:   s.project.ID,
			Name:        name,
			Order:       i + 1,
			IsActive:    true,
			CreatedByID: s.owner.ID,
		}
		s.Require().NoError(s.db.Create(&role).Error)
		s.roles = append(s.roles, role)
	}
}

func (s *WorkflowServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *WorkflowServiceTestSuite) createUser(email string) *models.User {
	user := &models.User{
		Name:         email,
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *WorkflowServiceTestSuite) createTask(title string) *models.Task {
	task := &models.Task{
		Title:       title,
		ProjectID:   s.project.ID,
		CreatedByID: s.owner.ID,
		Priority:    models.PriorityMedium,
	}
	s.Require().NoError(s.db.Create(task).Error)
	return task
}

// configureThreeStages sets up the Design -> Backend -> Testing pipeline with
// one assignee per stage.
func (s *WorkflowServiceTestSuite) configureThreeStages(taskID uint64) *models.Task {
	task, err := s.workflow.ConfigureAssignments(taskID, s.owner, []RoleAssignmentInput{
		{RoleID: s.roles[0].ID, AssigneeIDs: []uint64{s.designer.ID}},
		{RoleID: s.roles[1].ID, AssigneeIDs: []uint64{s.backend.ID}},
		{RoleID: s.roles[2].ID, AssigneeIDs: []uint64{s.tester.ID}},
	}, nil)
	s.Require().NoError(err)
	return task
}

func (s *WorkflowServiceTestSuite) activeCount(task *models.Task) int {
	count := 0
	for i := range task.RoleAssignments {
		if task.RoleAssignments[i].Status == models.RoleStatusActive {
			count++
		}
	}
	return count
}

func (s *WorkflowServiceTestSuite) notificationsFor(userID uint64) []models.Notification {
	notifications, _, _, err := s.notifier.ListForUser(userID, utils.PaginationParams{Page: 1, Limit: 50})
	s.Require().NoError(err)
	return notifications
}

func (s *WorkflowServiceTestSuite) TestConfigureAssignments() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)

	s.True(task.UseRoleWorkflow)
	s.Equal(models.WorkflowNotStarted, task.CurrentRoleIndex)
	s.Require().Len(task.RoleAssignments, 3)
	for i, ra := range task.RoleAssignments {
		s.Equal(i+1, ra.Order)
		s.Equal(models.RoleStatusPending, ra.Status)
	}
	s.Equal(s.roles[0].ID, task.RoleAssignments[0].RoleID)
}

func (s *WorkflowServiceTestSuite) TestConfigureRejectsUnknownAssignee() {
	task := s.createTask("Build feature")

	_, err := s.workflow.ConfigureAssignments(task.ID, s.owner, []RoleAssignmentInput{
		{RoleID: s.roles[0].ID, AssigneeIDs: []uint64{s.designer.ID, 9999}},
	}, nil)
	s.ErrorIs(err, ErrInvalidTaskAssignee)

	// The rejected configuration must not leave behind a blank user row.
	var count int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", 9999).Count(&count).Error)
	s.Zero(count)
}

func (s *WorkflowServiceTestSuite) TestConfigureRejectsForeignRole() {
	other := &models.Project{Name: "Other", OwnerID: s.owner.ID}
	s.Require().NoError(s.db.Create(other).Error)
	foreign := models.TaskRole{ProjectID: other.ID, Name: "Review", IsActive: true, CreatedByID: s.owner.ID}
	s.Require().NoError(s.db.Create(&foreign).Error)

	_, err := s.workflow.ConfigureAssignments(s.createTask("t").ID, s.owner, []RoleAssignmentInput{
		{RoleID: foreign.ID},
	}, nil)
	s.ErrorIs(err, ErrInvalidRole)
}

func (s *WorkflowServiceTestSuite) TestStartActivatesFirstStage() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)

	started, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	s.Equal(0, started.CurrentRoleIndex)
	s.Equal(models.RoleStatusActive, started.RoleAssignments[0].Status)
	s.NotNil(started.RoleAssignments[0].StartedAt)
	s.Equal(models.RoleStatusPending, started.RoleAssignments[1].Status)
	s.Equal(1, s.activeCount(started))

	notifications := s.notificationsFor(s.designer.ID)
	s.Require().Len(notifications, 1)
	s.Equal(models.NotificationTaskRoleAssignment, notifications[0].Type)
	s.Equal("Assigned to role: Design", notifications[0].Title)
}

func (s *WorkflowServiceTestSuite) TestStartWithoutConfiguration() {
	task := s.createTask("No workflow")

	_, err := s.workflow.Start(task.ID, s.owner)
	s.ErrorIs(err, ErrWorkflowNotConfigured)
}

func (s *WorkflowServiceTestSuite) TestStartTwiceRejected() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)

	_, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	_, err = s.workflow.Start(task.ID, s.owner)
	s.ErrorIs(err, ErrWorkflowAlreadyStarted)
}

func (s *WorkflowServiceTestSuite) TestCompleteAdvancesAndNotifies() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)
	_, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	updated, err := s.workflow.CompleteAndHandoff(task.ID, s.designer, HandoffPayload{
		Comment: "Mockups attached",
		URLs: []HandoffURLInput{
			{Title: "Figma", URL: "https://figma.example.com/mockups"},
			{Title: "", URL: "https://dropped.example.com"}, // missing title, dropped
		},
	})
	s.Require().NoError(err)

	s.Equal(1, updated.CurrentRoleIndex)
	s.Equal(1, s.activeCount(updated))

	done := updated.RoleAssignments[0]
	s.Equal(models.RoleStatusCompleted, done.Status)
	s.Equal("Mockups attached", done.HandoffComment)
	s.Require().NotNil(done.HandoffByID)
	s.Equal(s.designer.ID, *done.HandoffByID)
	s.NotNil(done.HandoffAt)
	s.Require().Len(done.HandoffURLs, 1)
	s.Equal("Figma", done.HandoffURLs[0].Title)

	s.Equal(models.RoleStatusActive, updated.RoleAssignments[1].Status)

	notifications := s.notificationsFor(s.backend.ID)
	s.Require().Len(notifications, 1)
	s.Equal(models.NotificationTaskRoleHandoff, notifications[0].Type)
	s.Equal("Mockups attached", notifications[0].Metadata.HandoffComment)
	s.Require().NotNil(notifications[0].Metadata.FromUserID)
	s.Equal(s.designer.ID, *notifications[0].Metadata.FromUserID)
	s.Require().Len(notifications[0].Metadata.HandoffURLs, 1)
}

func (s *WorkflowServiceTestSuite) TestCompleteByNonAssignee() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)
	_, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	_, err = s.workflow.CompleteAndHandoff(task.ID, s.backend, HandoffPayload{Comment: "not mine"})
	s.ErrorIs(err, ErrNotRoleAssignee)
}

func (s *WorkflowServiceTestSuite) TestCompleteBeforeStart() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)

	_, err := s.workflow.CompleteAndHandoff(task.ID, s.designer, HandoffPayload{})
	s.ErrorIs(err, ErrWorkflowNotStarted)
}

func (s *WorkflowServiceTestSuite) TestCompleteLastStageKeepsIndex() {
	task, err := s.workflow.ConfigureAssignments(s.createTask("Single stage").ID, s.owner, []RoleAssignmentInput{
		{RoleID: s.roles[0].ID, AssigneeIDs: []uint64{s.designer.ID}},
	}, nil)
	s.Require().NoError(err)
	_, err = s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	updated, err := s.workflow.CompleteAndHandoff(task.ID, s.designer, HandoffPayload{Comment: "done"})
	s.Require().NoError(err)

	s.Equal(0, updated.CurrentRoleIndex)
	s.Equal(models.RoleStatusCompleted, updated.RoleAssignments[0].Status)
	s.True(updated.IsWorkflowComplete())
	s.Equal(0, s.activeCount(updated))

	// No further stage means no further resolution is possible.
	_, err = s.workflow.CompleteAndHandoff(task.ID, s.designer, HandoffPayload{})
	s.ErrorIs(err, ErrNoActiveRole)
}

func (s *WorkflowServiceTestSuite) TestSkipRequiresOwner() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)
	_, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	_, err = s.workflow.Skip(task.ID, s.designer, "in a hurry")
	s.ErrorIs(err, ErrOnlyOwnerCanSkip)
}

func (s *WorkflowServiceTestSuite) TestSkipAdvancesWithDefaultReason() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)
	_, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	updated, err := s.workflow.Skip(task.ID, s.owner, "")
	s.Require().NoError(err)

	skipped := updated.RoleAssignments[0]
	s.Equal(models.RoleStatusSkipped, skipped.Status)
	s.Equal("Role skipped", skipped.HandoffComment)
	s.Require().NotNil(skipped.HandoffByID)
	s.Equal(s.owner.ID, *skipped.HandoffByID)

	s.Equal(1, updated.CurrentRoleIndex)
	s.Equal(models.RoleStatusActive, updated.RoleAssignments[1].Status)
	s.True(skipped.Status.Resolved())

	// A skip notifies the next stage without a handoff payload.
	notifications := s.notificationsFor(s.backend.ID)
	s.Require().Len(notifications, 1)
	s.Equal(models.NotificationTaskRoleHandoff, notifications[0].Type)
	s.Empty(notifications[0].Metadata.HandoffComment)
	s.Nil(notifications[0].Metadata.FromUserID)
}

func (s *WorkflowServiceTestSuite) TestConfigureWhileActiveRejected() {
	task := s.configureThreeStages(s.createTask("Build feature").ID)
	_, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)

	_, err = s.workflow.ConfigureAssignments(task.ID, s.owner, []RoleAssignmentInput{
		{RoleID: s.roles[1].ID, AssigneeIDs: []uint64{s.backend.ID}},
	}, nil)
	s.ErrorIs(err, ErrWorkflowInProgress)
}

func (s *WorkflowServiceTestSuite) TestUnconfiguredTaskIsTriviallyComplete() {
	task, err := s.workflow.GetTaskWithWorkflow(s.createTask("No workflow").ID)
	s.Require().NoError(err)
	s.Empty(task.RoleAssignments)
	s.True(task.IsWorkflowComplete())

	// Disabling the workflow makes the task trivially complete even with
	// unresolved stages still attached.
	configured := s.configureThreeStages(s.createTask("Disabled workflow").ID)
	disabled := false
	configured, err = s.workflow.ConfigureAssignments(configured.ID, s.owner, []RoleAssignmentInput{
		{RoleID: s.roles[0].ID, AssigneeIDs: []uint64{s.designer.ID}},
	}, &disabled)
	s.Require().NoError(err)
	s.False(configured.UseRoleWorkflow)
	s.True(configured.IsWorkflowComplete())
}

func (s *WorkflowServiceTestSuite) TestFullPipelineRunsToCompletion() {
	task := s.configureThreeStages(s.createTask("Ship it").ID)

	current, err := s.workflow.Start(task.ID, s.owner)
	s.Require().NoError(err)
	s.Equal(1, s.activeCount(current))

	actors := []*models.User{s.designer, s.backend, s.tester}
	for i, actor := range actors {
		current, err = s.workflow.CompleteAndHandoff(task.ID, actor, HandoffPayload{
			Comment: fmt.Sprintf("stage %d done", i+1),
		})
		s.Require().NoError(err)
		s.LessOrEqual(s.activeCount(current), 1)
	}

	s.True(current.IsWorkflowComplete())
	s.Equal(2, current.CurrentRoleIndex)
	for _, ra := range current.RoleAssignments {
		s.Equal(models.RoleStatusCompleted, ra.Status)
	}
}

func TestWorkflowServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowServiceTestSuite))
}
