package services

import (
	"errors"
	"fmt"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrProjectNotFound = errors.New("project not found")
)

// ProjectAccess is the level of access a user has to a project.
type ProjectAccess int

const (
	ProjectAccessNone ProjectAccess = iota
	// ProjectAccessRead is granted to the owning company's owner: they may
	// view the project but not modify it.
	ProjectAccessRead
	ProjectAccessWrite
)

// PermissionService is the single authorization resolver. Every permission
// decision in the company and project surfaces routes through it; results
// are recomputed on every call because designations and memberships change
// between requests.
type PermissionService struct {
	companyRepo repository.CompanyRepository
	projectRepo repository.ProjectRepository
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(companyRepo repository.CompanyRepository, projectRepo repository.ProjectRepository) *PermissionService {
	return &PermissionService{
		companyRepo: companyRepo,
		projectRepo: projectRepo,
	}
}

// ResolveCompanyPermissions resolves the effective permission set an actor
// holds within a company:
//
//   - superadmins and the company owner get every permission;
//   - members get their designation's permission set, resolved by name;
//   - members whose designation name matches no designation get a lenient
//     default (view-only) rather than an error;
//   - non-members get nothing.
//
// The company must be loaded with Designations and Members.
func (s *PermissionService) ResolveCompanyPermissions(actor *models.User, company *models.Company) models.PermissionSet {
	if actor.IsSuperadmin() {
		return models.FullPermissions()
	}
	if company.OwnerID == actor.ID {
		return models.FullPermissions()
	}

	member := company.FindMember(actor.ID)
	if member == nil {
		return models.PermissionSet{}
	}

	designation := company.FindDesignation(member.Designation)
	if designation == nil {
		// The designation string is a free-form reference: it may point at a
		// designation that was renamed or removed. Fall back instead of
		// failing.
		return models.DefaultMemberPermissions()
	}
	return designation.Permissions
}

// ResolveCompanyPermissionsByID loads the company and resolves permissions.
func (s *PermissionService) ResolveCompanyPermissionsByID(actor *models.User, companyID uint64) (models.PermissionSet, error) {
	company, err := s.companyRepo.FindByID(companyID, "Designations", "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PermissionSet{}, ErrCompanyNotFound
		}
		return models.PermissionSet{}, fmt.Errorf("failed to load company: %w", err)
	}
	return s.ResolveCompanyPermissions(actor, company), nil
}

// ResolveProjectAccess determines a user's access to a project. Write access
// goes to the project owner, explicit project members and superadmins. The
// owning company's owner gets read access to projects they do not otherwise
// belong to. Plain company membership grants nothing: projects have their own
// member lists.
//
// The project must be loaded with Members.
func (s *PermissionService) ResolveProjectAccess(actor *models.User, project *models.Project) (ProjectAccess, error) {
	if actor.IsSuperadmin() {
		return ProjectAccessWrite, nil
	}
	if project.OwnerID == actor.ID {
		return ProjectAccessWrite, nil
	}
	if project.HasMember(actor.ID) {
		return ProjectAccessWrite, nil
	}

	if project.CompanyID != nil {
		company, err := s.companyRepo.FindByID(*project.CompanyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ProjectAccessNone, nil
			}
			return ProjectAccessNone, fmt.Errorf("failed to load company: %w", err)
		}
		if company.OwnerID == actor.ID {
			return ProjectAccessRead, nil
		}
	}

	return ProjectAccessNone, nil
}

// ResolveProjectAccessByID loads the project and resolves access.
func (s *PermissionService) ResolveProjectAccessByID(actor *models.User, projectID uint64) (ProjectAccess, *models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectAccessNone, nil, ErrProjectNotFound
		}
		return ProjectAccessNone, nil, fmt.Errorf("failed to load project: %w", err)
	}
	access, err := s.ResolveProjectAccess(actor, project)
	if err != nil {
		return ProjectAccessNone, nil, err
	}
	return access, project, nil
}

// IsProjectOwner reports whether the actor owns the project. Superadmins do
// not count as owners: owner-restricted workflow operations (skip) stay with
// the actual owner.
func (s *PermissionService) IsProjectOwner(actor *models.User, project *models.Project) bool {
	return project.OwnerID == actor.ID
}
