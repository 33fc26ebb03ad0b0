package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwrueen/offtix-back/internal/constants"
	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrRoleNotFound           = errors.New("workflow role not found")
	ErrRoleNameRequired       = errors.New("role name is required")
	ErrOnlyOwnerManagesRoles  = errors.New("only the project owner can manage workflow roles")
	ErrRolesAlreadyExist      = errors.New("workflow roles already exist for this project")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoRolesSuggested     = errors.New("AI did not suggest any roles")
)

// TaskRoleService manages project-scoped workflow role definitions.
type TaskRoleService struct {
	taskRoleRepo repository.TaskRoleRepository
	userRepo     repository.UserRepository
	permissions  *PermissionService
	aiService    *AIService
}

// NewTaskRoleService creates a new TaskRoleService. aiService may be nil when
// role suggestions are disabled.
func NewTaskRoleService(
	taskRoleRepo repository.TaskRoleRepository,
	userRepo repository.UserRepository,
	permissions *PermissionService,
	aiService *AIService,
) *TaskRoleService {
	return &TaskRoleService{
		taskRoleRepo: taskRoleRepo,
		userRepo:     userRepo,
		permissions:  permissions,
		aiService:    aiService,
	}
}

// RoleInput represents input for creating or updating a workflow role
type RoleInput struct {
	Name               string
	Description        string
	Color              string
	Icon               string
	EstimatedDuration  *models.Duration
	DefaultAssigneeIDs []uint64
}

// RoleOrderInput moves one role to a new position
type RoleOrderInput struct {
	RoleID uint64
	Order  int
}

// ListRoles returns a project's active workflow roles in stage order.
func (s *TaskRoleService) ListRoles(actor *models.User, projectID uint64) ([]models.TaskRole, error) {
	access, _, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if access == ProjectAccessNone {
		return nil, ErrProjectAccessDenied
	}

	roles, err := s.taskRoleRepo.ListByProject(projectID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// CreateRole creates a workflow role at the end of the project's sequence.
// Restricted to the project owner.
func (s *TaskRoleService) CreateRole(actor *models.User, projectID uint64, input RoleInput) (*models.TaskRole, error) {
	if input.Name == "" {
		return nil, ErrRoleNameRequired
	}
	if err := s.requireOwner(actor, projectID); err != nil {
		return nil, err
	}

	order, err := s.taskRoleRepo.NextOrder(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine role order: %w", err)
	}

	role := &models.TaskRole{
		ProjectID:   projectID,
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		Order:       order,
		IsActive:    true,
		CreatedByID: actor.ID,
	}
	if input.EstimatedDuration != nil {
		role.EstimatedDuration = *input.EstimatedDuration
	}
	for _, id := range uniqueUint64(input.DefaultAssigneeIDs) {
		role.DefaultAssignees = append(role.DefaultAssignees, models.User{ID: id})
	}

	if err := s.taskRoleRepo.Create(role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return s.taskRoleRepo.FindByID(role.ID)
}

// UpdateRole updates a workflow role. Restricted to the project owner.
func (s *TaskRoleService) UpdateRole(actor *models.User, projectID, roleID uint64, input RoleInput) (*models.TaskRole, error) {
	role, err := s.findProjectRole(projectID, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(actor, projectID); err != nil {
		return nil, err
	}

	if input.Name != "" {
		role.Name = input.Name
	}
	role.Description = input.Description
	if input.Color != "" {
		role.Color = input.Color
	}
	role.Icon = input.Icon
	if input.EstimatedDuration != nil {
		role.EstimatedDuration = *input.EstimatedDuration
	}
	if input.DefaultAssigneeIDs != nil {
		role.DefaultAssignees = nil
		for _, id := range uniqueUint64(input.DefaultAssigneeIDs) {
			role.DefaultAssignees = append(role.DefaultAssignees, models.User{ID: id})
		}
	}

	if err := s.taskRoleRepo.Update(role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.taskRoleRepo.FindByID(role.ID)
}

// DeleteRole deactivates a workflow role. Historical role assignments keep
// referencing it. Restricted to the project owner.
func (s *TaskRoleService) DeleteRole(actor *models.User, projectID, roleID uint64) error {
	role, err := s.findProjectRole(projectID, roleID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(actor, projectID); err != nil {
		return err
	}

	if err := s.taskRoleRepo.Deactivate(role.ID); err != nil {
		return fmt.Errorf("failed to deactivate role: %w", err)
	}
	return nil
}

// ReorderRoles applies new positions to a project's roles. Restricted to the
// project owner.
func (s *TaskRoleService) ReorderRoles(actor *models.User, projectID uint64, orders []RoleOrderInput) ([]models.TaskRole, error) {
	if err := s.requireOwner(actor, projectID); err != nil {
		return nil, err
	}

	roleIDs := make([]uint64, len(orders))
	for i, o := range orders {
		roleIDs[i] = o.RoleID
	}
	roles, err := s.taskRoleRepo.FindProjectRoles(projectID, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to verify roles: %w", err)
	}
	if len(roles) != len(uniqueUint64(roleIDs)) {
		return nil, ErrRoleNotFound
	}

	for _, o := range orders {
		if err := s.taskRoleRepo.UpdateOrder(o.RoleID, o.Order); err != nil {
			return nil, fmt.Errorf("failed to reorder role: %w", err)
		}
	}

	return s.taskRoleRepo.ListByProject(projectID, true)
}

// InitializeDefaultRoles seeds the standard role set into a project that has
// no active roles yet. Restricted to the project owner.
func (s *TaskRoleService) InitializeDefaultRoles(actor *models.User, projectID uint64) ([]models.TaskRole, error) {
	if err := s.requireOwner(actor, projectID); err != nil {
		return nil, err
	}

	existing, err := s.taskRoleRepo.ListByProject(projectID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrRolesAlreadyExist
	}

	defaults := models.DefaultTaskRoles(projectID, actor.ID)
	for i := range defaults {
		if err := s.taskRoleRepo.Create(&defaults[i]); err != nil {
			return nil, fmt.Errorf("failed to seed default roles: %w", err)
		}
	}

	return s.taskRoleRepo.ListByProject(projectID, true)
}

// SuggestRoles asks the AI service for a workflow role sequence fitting a
// free-text project description. Suggestions are not persisted.
func (s *TaskRoleService) SuggestRoles(ctx context.Context, actor *models.User, projectID uint64, description string) ([]SuggestedRole, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if err := s.requireOwner(actor, projectID); err != nil {
		return nil, err
	}

	suggestions, err := s.aiService.SuggestWorkflowRoles(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest roles: %w", err)
	}

	valid := make([]SuggestedRole, 0, len(suggestions))
	for _, sg := range suggestions {
		if strings.TrimSpace(sg.Name) == "" {
			continue
		}
		valid = append(valid, sg)
		if len(valid) == constants.MaxSuggestedRoles {
			break
		}
	}
	if len(valid) == 0 {
		return nil, ErrAINoRolesSuggested
	}

	return valid, nil
}

func (s *TaskRoleService) requireOwner(actor *models.User, projectID uint64) error {
	_, project, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return err
	}
	if !s.permissions.IsProjectOwner(actor, project) {
		return ErrOnlyOwnerManagesRoles
	}
	return nil
}

func (s *TaskRoleService) findProjectRole(projectID, roleID uint64) (*models.TaskRole, error) {
	role, err := s.taskRoleRepo.FindByID(roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	if role.ProjectID != projectID {
		return nil, ErrRoleNotFound
	}
	return role, nil
}
