package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidProjectName   = errors.New("project name cannot be empty")
	ErrNotProjectOwner      = errors.New("only the project owner can perform this action")
	ErrAlreadyProjectMember = errors.New("user is already a project member")
	ErrProjectMemberMissing = errors.New("project member not found")
)

// ProjectService provides business logic for projects, their membership and
// the project-scoped task status list.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	permissions *PermissionService
	notifier    *NotificationService
}

// NewProjectService creates a new ProjectService.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	permissions *PermissionService,
	notifier *NotificationService,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		permissions: permissions,
		notifier:    notifier,
	}
}

// CreateProjectInput represents parameters to create a new project. A nil
// CompanyID creates a personal project outside any company.
type CreateProjectInput struct {
	Name        string
	Description string
	CompanyID   *uint64
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProjectInput represents input for updating a project.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateProject creates a project and seeds its default task statuses.
// Creating inside a company requires the createProject capability; personal
// projects are always allowed.
func (s *ProjectService) CreateProject(actor *models.User, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidProjectName
	}

	if input.CompanyID != nil {
		perms, err := s.permissions.ResolveCompanyPermissionsByID(actor, *input.CompanyID)
		if err != nil {
			return nil, err
		}
		if !perms.CreateProject {
			return nil, ErrCompanyPermissionDenied
		}
	}

	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     actor.ID,
		CompanyID:   input.CompanyID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if _, err := s.projectRepo.SeedDefaultStatuses(project.ID); err != nil {
		return nil, fmt.Errorf("failed to seed task statuses: %w", err)
	}

	return s.projectRepo.FindByID(project.ID, "Owner", "Company", "Members", "Members.User")
}

// GetProject returns a project the actor can read.
func (s *ProjectService) GetProject(actor *models.User, projectID uint64) (*models.Project, error) {
	access, project, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if access == ProjectAccessNone {
		return nil, ErrProjectAccessDenied
	}
	return project, nil
}

// UpdateProject updates project metadata. Restricted to the project owner.
func (s *ProjectService) UpdateProject(actor *models.User, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	_, project, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.IsProjectOwner(actor, project) {
		return nil, ErrNotProjectOwner
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// DeleteProject removes a project. Restricted to the project owner.
func (s *ProjectService) DeleteProject(actor *models.User, projectID uint64) error {
	_, project, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return err
	}
	if !s.permissions.IsProjectOwner(actor, project) {
		return ErrNotProjectOwner
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// AddMember adds a user to the project team and notifies them. Company
// members with the assignEmployeeToProject capability may add members; so may
// the project owner.
func (s *ProjectService) AddMember(actor *models.User, projectID, userID uint64) (*models.Project, error) {
	_, project, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireTeamManager(actor, project, func(p models.PermissionSet) bool { return p.AssignEmployeeToProject }); err != nil {
		return nil, err
	}

	if project.HasMember(userID) {
		return nil, ErrAlreadyProjectMember
	}
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    userID,
		AddedByID: &actor.ID,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}

	s.notifyAssignment(userID, project)

	return s.projectRepo.FindByID(project.ID, "Owner", "Company", "Members", "Members.User")
}

// RemoveMember removes a user from the project team.
func (s *ProjectService) RemoveMember(actor *models.User, projectID, userID uint64) (*models.Project, error) {
	_, project, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireTeamManager(actor, project, func(p models.PermissionSet) bool { return p.RemoveEmployeeFromProject }); err != nil {
		return nil, err
	}

	if !project.HasMember(userID) {
		return nil, ErrProjectMemberMissing
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return nil, fmt.Errorf("failed to remove project member: %w", err)
	}

	return s.projectRepo.FindByID(project.ID, "Owner", "Company", "Members", "Members.User")
}

// ListStatuses returns the project's ordered task status list.
func (s *ProjectService) ListStatuses(actor *models.User, projectID uint64) ([]models.TaskStatus, error) {
	access, _, err := s.permissions.ResolveProjectAccessByID(actor, projectID)
	if err != nil {
		return nil, err
	}
	if access == ProjectAccessNone {
		return nil, ErrProjectAccessDenied
	}

	statuses, err := s.projectRepo.ListStatuses(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return statuses, nil
}

// requireTeamManager allows superadmins, the project owner, the company owner
// and company members holding the given capability.
func (s *ProjectService) requireTeamManager(actor *models.User, project *models.Project, capability func(models.PermissionSet) bool) error {
	if actor.IsSuperadmin() || project.OwnerID == actor.ID {
		return nil
	}
	if project.CompanyID != nil {
		perms, err := s.permissions.ResolveCompanyPermissionsByID(actor, *project.CompanyID)
		if err != nil {
			return err
		}
		if capability(perms) {
			return nil
		}
	}
	return ErrProjectAccessDenied
}

func (s *ProjectService) notifyAssignment(userID uint64, project *models.Project) {
	if s.notifier == nil {
		return
	}
	projectID := project.ID
	err := s.notifier.Notify(&models.Notification{
		UserID:       userID,
		Type:         models.NotificationProjectAssignment,
		Title:        "Added to project",
		Message:      fmt.Sprintf("You have been added to the project %q", project.Name),
		RelatedID:    &projectID,
		RelatedModel: models.RelatedProject,
	})
	if err != nil {
		log.Printf("failed to notify user %d: %v", userID, err)
	}
}
