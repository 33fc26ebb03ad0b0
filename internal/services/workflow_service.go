package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrWorkflowNotConfigured  = errors.New("task does not have role workflow configured")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrWorkflowNotStarted     = errors.New("workflow not started")
	ErrNoActiveRole           = errors.New("no active role")
	ErrNotRoleAssignee        = errors.New("user is not assigned to the current role")
	ErrOnlyOwnerCanSkip       = errors.New("only the project owner can skip roles")
	ErrWorkflowInProgress     = errors.New("cannot modify role assignments while workflow is in progress")
	ErrInvalidRole            = errors.New("role does not belong to the task's project")
	ErrWorkflowConflict       = errors.New("workflow was modified by another request")
	ErrProjectAccessDenied    = errors.New("access to this project is denied")
)

// WorkflowService drives the sequential role workflow attached to tasks:
// ordered stages, one active at a time, explicit handoff between stages.
type WorkflowService struct {
	taskRepo     repository.TaskRepository
	taskRoleRepo repository.TaskRoleRepository
	userRepo     repository.UserRepository
	permissions  *PermissionService
	notifier     *NotificationService
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	taskRepo repository.TaskRepository,
	taskRoleRepo repository.TaskRoleRepository,
	userRepo repository.UserRepository,
	permissions *PermissionService,
	notifier *NotificationService,
) *WorkflowService {
	return &WorkflowService{
		taskRepo:     taskRepo,
		taskRoleRepo: taskRoleRepo,
		userRepo:     userRepo,
		permissions:  permissions,
		notifier:     notifier,
	}
}

// HandoffFileInput is upload metadata reported by the file handler.
type HandoffFileInput struct {
	Filename     string
	OriginalName string
	Path         string
	Size         int64
}

// HandoffURLInput is a titled link passed along with a handoff.
type HandoffURLInput struct {
	Title string
	URL   string
}

// HandoffPayload is what one stage passes to the next.
type HandoffPayload struct {
	Comment string
	Files   []HandoffFileInput
	URLs    []HandoffURLInput
}

// RoleAssignmentInput configures one stage of a task's workflow.
type RoleAssignmentInput struct {
	RoleID      uint64
	Order       int
	AssigneeIDs []uint64
}

// GetTaskWithWorkflow returns a task with its fully populated workflow state.
func (s *WorkflowService) GetTaskWithWorkflow(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindWithWorkflow(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ConfigureAssignments wholesale replaces a task's role workflow. Rejected
// while any stage is active; once a workflow is running the assignment list
// is immutable until it resolves.
func (s *WorkflowService) ConfigureAssignments(taskID uint64, actor *models.User, inputs []RoleAssignmentInput, useWorkflow *bool) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if access < ProjectAccessWrite {
		return nil, ErrProjectAccessDenied
	}

	if task.CurrentRoleIndex >= 0 && task.HasActiveRole() {
		return nil, ErrWorkflowInProgress
	}

	assignments := make([]models.RoleAssignment, 0, len(inputs))
	if len(inputs) > 0 {
		roleIDs := make([]uint64, len(inputs))
		for i, in := range inputs {
			roleIDs[i] = in.RoleID
		}
		roles, err := s.taskRoleRepo.FindProjectRoles(task.ProjectID, roleIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to verify roles: %w", err)
		}
		known := make(map[uint64]struct{}, len(roles))
		for _, role := range roles {
			known[role.ID] = struct{}{}
		}
		for _, in := range inputs {
			if _, ok := known[in.RoleID]; !ok {
				return nil, ErrInvalidRole
			}
		}

		var allAssignees []uint64
		for _, in := range inputs {
			allAssignees = append(allAssignees, in.AssigneeIDs...)
		}
		if ids := uniqueUint64(allAssignees); len(ids) > 0 {
			count, err := s.userRepo.CountByIDs(ids)
			if err != nil {
				return nil, fmt.Errorf("failed to verify assignees: %w", err)
			}
			if int(count) != len(ids) {
				return nil, ErrInvalidTaskAssignee
			}
		}

		for i, in := range inputs {
			order := in.Order
			if order == 0 {
				order = i + 1
			}
			assignees := make([]models.User, len(in.AssigneeIDs))
			for j, id := range in.AssigneeIDs {
				assignees[j] = models.User{ID: id}
			}
			assignments = append(assignments, models.RoleAssignment{
				RoleID:    in.RoleID,
				Order:     order,
				Status:    models.RoleStatusPending,
				Assignees: assignees,
			})
		}
	}

	enabled := len(inputs) > 0
	if useWorkflow != nil {
		enabled = *useWorkflow
	}

	if err := s.taskRepo.ReplaceRoleAssignments(task.ID, assignments, enabled); err != nil {
		return nil, fmt.Errorf("failed to replace role assignments: %w", err)
	}

	return s.GetTaskWithWorkflow(task.ID)
}

// Start activates the first stage of a configured workflow and notifies its
// assignees.
func (s *WorkflowService) Start(taskID uint64, actor *models.User) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	access, _, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if access < ProjectAccessWrite {
		return nil, ErrProjectAccessDenied
	}

	if !task.UseRoleWorkflow || len(task.RoleAssignments) == 0 {
		return nil, ErrWorkflowNotConfigured
	}
	if task.CurrentRoleIndex >= 0 {
		return nil, ErrWorkflowAlreadyStarted
	}

	first := task.RoleAssignments[0]
	if err := s.taskRepo.StartWorkflow(task.ID, first.ID, time.Now()); err != nil {
		if errors.Is(err, repository.ErrStaleWorkflow) {
			return nil, ErrWorkflowConflict
		}
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	updated, err := s.GetTaskWithWorkflow(task.ID)
	if err != nil {
		return nil, err
	}

	if active := updated.CurrentRoleAssignment(); active != nil {
		s.fanOut(models.NotificationTaskRoleAssignment, updated, active, nil, nil)
	}
	return updated, nil
}

// CompleteAndHandoff resolves the active stage as completed with the given
// handoff payload and activates the next stage when one exists. Authorized
// at the assignee level: the actor must be assigned to the active stage,
// regardless of their company or project permissions.
func (s *WorkflowService) CompleteAndHandoff(taskID uint64, actor *models.User, payload HandoffPayload) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	if task.CurrentRoleIndex < 0 {
		return nil, ErrWorkflowNotStarted
	}
	current := task.CurrentRoleAssignment()
	if current == nil || current.Status != models.RoleStatusActive {
		return nil, ErrNoActiveRole
	}
	if !current.HasAssignee(actor.ID) {
		return nil, ErrNotRoleAssignee
	}

	files := make([]models.HandoffFile, 0, len(payload.Files))
	now := time.Now()
	for _, f := range payload.Files {
		files = append(files, models.HandoffFile{
			Filename:     f.Filename,
			OriginalName: f.OriginalName,
			Path:         f.Path,
			Size:         f.Size,
			UploadedAt:   now,
		})
	}
	urls := make([]models.HandoffURL, 0, len(payload.URLs))
	for _, u := range payload.URLs {
		if u.Title == "" || u.URL == "" {
			continue
		}
		urls = append(urls, models.HandoffURL{Title: u.Title, URL: u.URL})
	}

	resolution := repository.RoleResolution{
		TaskID:         task.ID,
		AssignmentID:   current.ID,
		Outcome:        models.RoleStatusCompleted,
		HandoffComment: payload.Comment,
		HandoffByID:    actor.ID,
		HandoffFiles:   files,
		HandoffURLs:    urls,
		Now:            now,
	}
	if next := task.NextRoleAssignment(); next != nil {
		resolution.NextAssignmentID = &next.ID
		resolution.NextIndex = task.CurrentRoleIndex + 1
	}

	if err := s.taskRepo.ResolveActiveRole(resolution); err != nil {
		if errors.Is(err, repository.ErrStaleWorkflow) {
			return nil, ErrWorkflowConflict
		}
		return nil, fmt.Errorf("failed to complete role: %w", err)
	}

	updated, err := s.GetTaskWithWorkflow(task.ID)
	if err != nil {
		return nil, err
	}

	if resolution.NextAssignmentID != nil {
		if active := updated.CurrentRoleAssignment(); active != nil {
			actorID := actor.ID
			normalized := payload
			normalized.URLs = nil
			for _, u := range urls {
				normalized.URLs = append(normalized.URLs, HandoffURLInput{Title: u.Title, URL: u.URL})
			}
			s.fanOut(models.NotificationTaskRoleHandoff, updated, active, &normalized, &actorID)
		}
	}
	return updated, nil
}

// Skip resolves the active stage as skipped with a synthetic handoff
// carrying the reason, then advances exactly like a completion. Restricted
// to the project owner.
func (s *WorkflowService) Skip(taskID uint64, actor *models.User, reason string) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	_, project, err := s.permissions.ResolveProjectAccessByID(actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.IsProjectOwner(actor, project) {
		return nil, ErrOnlyOwnerCanSkip
	}

	if task.CurrentRoleIndex < 0 {
		return nil, ErrWorkflowNotStarted
	}
	current := task.CurrentRoleAssignment()
	if current == nil || current.Status != models.RoleStatusActive {
		return nil, ErrNoActiveRole
	}

	if reason == "" {
		reason = "Role skipped"
	}

	resolution := repository.RoleResolution{
		TaskID:         task.ID,
		AssignmentID:   current.ID,
		Outcome:        models.RoleStatusSkipped,
		HandoffComment: reason,
		HandoffByID:    actor.ID,
		Now:            time.Now(),
	}
	if next := task.NextRoleAssignment(); next != nil {
		resolution.NextAssignmentID = &next.ID
		resolution.NextIndex = task.CurrentRoleIndex + 1
	}

	if err := s.taskRepo.ResolveActiveRole(resolution); err != nil {
		if errors.Is(err, repository.ErrStaleWorkflow) {
			return nil, ErrWorkflowConflict
		}
		return nil, fmt.Errorf("failed to skip role: %w", err)
	}

	updated, err := s.GetTaskWithWorkflow(task.ID)
	if err != nil {
		return nil, err
	}

	if resolution.NextAssignmentID != nil {
		if active := updated.CurrentRoleAssignment(); active != nil {
			// A skip hands nothing over: the next role is notified without a
			// handoff payload.
			s.fanOut(models.NotificationTaskRoleHandoff, updated, active, nil, nil)
		}
	}
	return updated, nil
}

// fanOut emits one notification per assignee of the stage. Emission is a
// best-effort side channel: the workflow transition has already been
// committed, so failures are logged and swallowed.
func (s *WorkflowService) fanOut(nType models.NotificationType, task *models.Task, assignment *models.RoleAssignment, handoff *HandoffPayload, fromUserID *uint64) {
	if s.notifier == nil {
		return
	}
	for i := range assignment.Assignees {
		_, err := s.notifier.EmitRoleEvent(RoleEventInput{
			Type:       nType,
			TargetID:   assignment.Assignees[i].ID,
			Task:       task,
			Role:       &assignment.Role,
			Handoff:    handoff,
			FromUserID: fromUserID,
		})
		if err != nil {
			log.Printf("failed to emit %s notification for user %d: %v", nType, assignment.Assignees[i].ID, err)
		}
	}
}

func (s *WorkflowService) loadTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindWithWorkflow(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}
