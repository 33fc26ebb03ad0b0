package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleEmpty          = errors.New("title cannot be empty")
	ErrStatusNotFound      = errors.New("task status not found")
	ErrStatusWrongProject  = errors.New("status does not belong to the task's project")
	ErrInvalidTaskAssignee = errors.New("one or more users do not exist")
	ErrInvalidDependency   = errors.New("dependency task does not belong to the same project")
	ErrSelfDependency      = errors.New("a task cannot depend on itself")
	ErrDependenciesBlock   = errors.New("task has incomplete dependencies")
)

// TaskService handles task business logic, including the dependency gate
// that guards transitions into a project's completed status.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	permissions *PermissionService
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	permissions *PermissionService,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		permissions: permissions,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title        string
	Description  string
	StatusID     *uint64
	Priority     models.TaskPriority
	ProjectID    uint64
	SprintID     *uint64
	PhaseID      *uint64
	ParentID     *uint64
	Duration     models.Duration
	StartDate    *time.Time
	DueDate      *time.Time
	AssigneeIDs  []uint64
	DependsOnIDs []uint64
}

// UpdateTaskInput represents input for updating a task. Nil pointers leave
// the corresponding field unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	StatusID     *uint64
	Priority     *models.TaskPriority
	SprintID     *uint64
	PhaseID      *uint64
	Duration     *models.Duration
	StartDate    *time.Time
	DueDate      *time.Time
	ClearDueDate bool
	AssigneeIDs  []uint64
	DependsOnIDs []uint64
}

// BlockingTask identifies a dependency that prevents completion.
type BlockingTask struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

// TransitionCheck is the result of the dependency gate.
type TransitionCheck struct {
	Allowed       bool           `json:"allowed"`
	BlockingTasks []BlockingTask `json:"blocking_tasks"`
}

// ListTasks returns the tasks of a project the actor can read.
func (s *TaskService) ListTasks(actor *models.User, projectID uint64) ([]models.Task, error) {
	access, _, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if access == ProjectAccessNone {
		return nil, ErrProjectAccessDenied
	}

	tasks, err := s.taskRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task with its related data.
func (s *TaskService) GetTask(actor *models.User, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindWithWorkflow(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if access == ProjectAccessNone {
		return nil, ErrProjectAccessDenied
	}
	return task, nil
}

// CreateTask creates a task in a project. The creator must have write access
// to the project. When no status is given the project's first status is used.
func (s *TaskService) CreateTask(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if access < ProjectAccessWrite {
		return nil, ErrProjectAccessDenied
	}

	statusID := input.StatusID
	if statusID == nil {
		statuses, err := s.projectRepo.ListStatuses(input.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to list statuses: %w", err)
		}
		if len(statuses) > 0 {
			statusID = &statuses[0].ID
		}
	} else if err := s.verifyStatus(input.ProjectID, *statusID); err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		StatusID:    statusID,
		Priority:    priority,
		ProjectID:   input.ProjectID,
		SprintID:    input.SprintID,
		PhaseID:     input.PhaseID,
		ParentID:    input.ParentID,
		Duration:    input.Duration,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		CreatedByID: actor.ID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if len(input.AssigneeIDs) > 0 {
		if err := s.setAssignees(task, input.AssigneeIDs); err != nil {
			return nil, err
		}
	}
	if len(input.DependsOnIDs) > 0 {
		if err := s.setDependencies(task, input.DependsOnIDs); err != nil {
			return nil, err
		}
	}

	return s.taskRepo.FindWithWorkflow(task.ID)
}

// UpdateTask updates a task. A status change into the project's completed
// status is gated on every dependency already being completed.
func (s *TaskService) UpdateTask(actor *models.User, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Dependencies", "Dependencies.Status")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if access < ProjectAccessWrite {
		return nil, ErrProjectAccessDenied
	}

	if input.StatusID != nil {
		if err := s.verifyStatus(task.ProjectID, *input.StatusID); err != nil {
			return nil, err
		}
		check, err := s.checkTransition(task, *input.StatusID)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			return nil, blockedError(check.BlockingTasks)
		}
		task.StatusID = input.StatusID
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.SprintID != nil {
		task.SprintID = input.SprintID
	}
	if input.PhaseID != nil {
		task.PhaseID = input.PhaseID
	}
	if input.Duration != nil {
		task.Duration = *input.Duration
	}
	if input.StartDate != nil {
		task.StartDate = input.StartDate
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if input.AssigneeIDs != nil {
		if err := s.setAssignees(task, input.AssigneeIDs); err != nil {
			return nil, err
		}
	}
	if input.DependsOnIDs != nil {
		if err := s.setDependencies(task, input.DependsOnIDs); err != nil {
			return nil, err
		}
	}

	return s.taskRepo.FindWithWorkflow(task.ID)
}

// DeleteTask deletes a task. Requires write access to the project.
func (s *TaskService) DeleteTask(actor *models.User, taskID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return err
	}
	if access < ProjectAccessWrite {
		return ErrProjectAccessDenied
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// CanTransition runs the dependency gate as a dry-run: no mutation, just the
// verdict and the list of blocking dependencies.
func (s *TaskService) CanTransition(actor *models.User, taskID, targetStatusID uint64) (*TransitionCheck, error) {
	task, err := s.taskRepo.FindByID(taskID, "Dependencies", "Dependencies.Status")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if access == ProjectAccessNone {
		return nil, ErrProjectAccessDenied
	}

	return s.checkTransition(task, targetStatusID)
}

// checkTransition implements the dependency gate. The project's last status
// in sort order is treated as the completed status; only transitions into it
// are gated. A dependency satisfies the gate iff its current status is that
// completed status.
func (s *TaskService) checkTransition(task *models.Task, targetStatusID uint64) (*TransitionCheck, error) {
	if len(task.Dependencies) == 0 {
		return &TransitionCheck{Allowed: true, BlockingTasks: []BlockingTask{}}, nil
	}

	statuses, err := s.projectRepo.ListStatuses(task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	if len(statuses) == 0 {
		return &TransitionCheck{Allowed: true, BlockingTasks: []BlockingTask{}}, nil
	}
	completedID := statuses[len(statuses)-1].ID

	if targetStatusID != completedID {
		return &TransitionCheck{Allowed: true, BlockingTasks: []BlockingTask{}}, nil
	}

	blocking := []BlockingTask{}
	for i := range task.Dependencies {
		dep := &task.Dependencies[i]
		if dep.StatusID == nil || *dep.StatusID != completedID {
			blocking = append(blocking, BlockingTask{ID: dep.ID, Title: dep.Title})
		}
	}

	return &TransitionCheck{Allowed: len(blocking) == 0, BlockingTasks: blocking}, nil
}

func (s *TaskService) verifyStatus(projectID, statusID uint64) error {
	status, err := s.projectRepo.FindStatus(statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStatusNotFound
		}
		return fmt.Errorf("failed to find status: %w", err)
	}
	if status.ProjectID != projectID {
		return ErrStatusWrongProject
	}
	return nil
}

func (s *TaskService) setAssignees(task *models.Task, userIDs []uint64) error {
	ids := uniqueUint64(userIDs)
	if len(ids) > 0 {
		count, err := s.userRepo.CountByIDs(ids)
		if err != nil {
			return fmt.Errorf("failed to verify users: %w", err)
		}
		if int(count) != len(ids) {
			return ErrInvalidTaskAssignee
		}
	}
	if err := s.taskRepo.SetAssignees(task.ID, ids); err != nil {
		return fmt.Errorf("failed to set assignees: %w", err)
	}
	return nil
}

func (s *TaskService) setDependencies(task *models.Task, dependsOnIDs []uint64) error {
	ids := uniqueUint64(dependsOnIDs)
	for _, id := range ids {
		if id == task.ID {
			return ErrSelfDependency
		}
		dep, err := s.taskRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find dependency: %w", err)
		}
		if dep.ProjectID != task.ProjectID {
			return ErrInvalidDependency
		}
	}
	if err := s.taskRepo.SetDependencies(task.ID, ids); err != nil {
		return fmt.Errorf("failed to set dependencies: %w", err)
	}
	return nil
}

func blockedError(blocking []BlockingTask) error {
	titles := make([]string, len(blocking))
	for i, b := range blocking {
		titles[i] = b.Title
	}
	return fmt.Errorf("%w: %v", ErrDependenciesBlock, titles)
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
