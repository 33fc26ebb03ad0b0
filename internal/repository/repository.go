package repository

import (
	"errors"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/utils"
)

// ErrStaleWorkflow is returned when a conditional workflow update matched no
// rows, meaning another request advanced the task first.
var ErrStaleWorkflow = errors.New("workflow state changed concurrently")

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uint64) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	CountByIDs(ids []uint64) (int64, error)
}

// CompanyRepository defines the interface for company data access, including
// the designation and member collections owned by the company aggregate.
type CompanyRepository interface {
	Create(company *models.Company) error
	FindByID(id uint64, preload ...string) (*models.Company, error)
	Update(company *models.Company) error
	ListForUser(userID uint64) ([]models.Company, error)

	AddDesignation(designation *models.Designation) error
	UpdateDesignation(designation *models.Designation) error
	FindDesignation(companyID, designationID uint64) (*models.Designation, error)
	DeleteDesignation(companyID, designationID uint64) error
	CountMembersByDesignation(companyID uint64, designationName string) (int64, error)

	AddMember(member *models.CompanyMember) error
	UpdateMember(member *models.CompanyMember) error
	RemoveMember(companyID, userID uint64) error
	FindMember(companyID, userID uint64) (*models.CompanyMember, error)
	AddSalaryRecord(record *models.SalaryRecord) error

	AddHoliday(holiday *models.Holiday) error
	RemoveHoliday(companyID, holidayID uint64) error
}

// ProjectRepository defines the interface for project and task status data
// access. Task statuses are project-scoped and managed alongside the project.
type ProjectRepository interface {
	Create(project *models.Project) error
	FindByID(id uint64, preload ...string) (*models.Project, error)
	Update(project *models.Project) error
	Delete(id uint64) error

	AddMember(member *models.ProjectMember) error
	RemoveMember(projectID, userID uint64) error

	ListStatuses(projectID uint64) ([]models.TaskStatus, error)
	SeedDefaultStatuses(projectID uint64) ([]models.TaskStatus, error)
	FindStatus(statusID uint64) (*models.TaskStatus, error)
}

// TaskRoleRepository defines the interface for workflow role definitions.
type TaskRoleRepository interface {
	Create(role *models.TaskRole) error
	FindByID(id uint64) (*models.TaskRole, error)
	Update(role *models.TaskRole) error
	Deactivate(id uint64) error
	ListByProject(projectID uint64, activeOnly bool) ([]models.TaskRole, error)
	FindProjectRoles(projectID uint64, roleIDs []uint64) ([]models.TaskRole, error)
	NextOrder(projectID uint64) (int, error)
	UpdateOrder(roleID uint64, order int) error
}

// RoleResolution describes the outcome applied to the active role assignment
// of a task, together with the advancement to the next stage when one exists.
type RoleResolution struct {
	TaskID       uint64
	AssignmentID uint64
	Outcome      models.RoleAssignmentStatus // completed or skipped

	HandoffComment string
	HandoffByID    uint64
	HandoffFiles   []models.HandoffFile
	HandoffURLs    []models.HandoffURL

	// NextAssignmentID, when non-nil, is activated and the task's
	// current_role_index advanced to NextIndex in the same transaction.
	NextAssignmentID *uint64
	NextIndex        int

	Now time.Time
}

// TaskRepository defines the interface for task data access, including the
// role workflow transitions which require conditional updates.
type TaskRepository interface {
	Create(task *models.Task) error
	FindByID(id uint64, preload ...string) (*models.Task, error)
	// FindWithWorkflow loads a task with its full populated workflow state:
	// role assignments ordered by stage, their roles, assignees and handoffs.
	FindWithWorkflow(id uint64) (*models.Task, error)
	ListByProject(projectID uint64) ([]models.Task, error)
	Update(task *models.Task) error
	Delete(id uint64) error

	SetAssignees(taskID uint64, userIDs []uint64) error
	SetDependencies(taskID uint64, dependsOnIDs []uint64) error

	// ReplaceRoleAssignments wholesale replaces the task's workflow
	// configuration and resets current_role_index to the not-started value.
	ReplaceRoleAssignments(taskID uint64, assignments []models.RoleAssignment, useWorkflow bool) error

	// StartWorkflow conditionally moves current_role_index from -1 to 0 and
	// activates the first assignment. Returns ErrStaleWorkflow if the task's
	// workflow was started concurrently.
	StartWorkflow(taskID, firstAssignmentID uint64, now time.Time) error

	// ResolveActiveRole conditionally resolves the active assignment and, when
	// a next stage exists, activates it and advances the index. Returns
	// ErrStaleWorkflow if the assignment is no longer active.
	ResolveActiveRole(res RoleResolution) error
}

// NotificationRepository defines the interface for notification persistence.
type NotificationRepository interface {
	Create(notification *models.Notification) error
	FindByID(id uint64) (*models.Notification, error)
	ListForUser(userID uint64, params utils.PaginationParams) ([]models.Notification, int64, error)
	CountUnread(userID uint64) (int64, error)
	MarkRead(id uint64, at time.Time) error
	MarkAllRead(userID uint64, at time.Time) error
}

// InvitationRepository defines the interface for company invitations.
type InvitationRepository interface {
	Create(invitation *models.Invitation) error
	FindByToken(token string) (*models.Invitation, error)
	Update(invitation *models.Invitation) error
	ListForCompany(companyID uint64) ([]models.Invitation, error)
	ListPendingByEmail(email string) ([]models.Invitation, error)
	FindPending(companyID uint64, email string) (*models.Invitation, error)
}
