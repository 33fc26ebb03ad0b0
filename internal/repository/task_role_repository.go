package repository

import (
	"errors"

	"github.com/mwrueen/offtix-back/internal/models"
	"gorm.io/gorm"
)

// GormTaskRoleRepository is a GORM implementation of TaskRoleRepository
type GormTaskRoleRepository struct {
	db *gorm.DB
}

// NewTaskRoleRepository creates a new TaskRoleRepository
func NewTaskRoleRepository(db *gorm.DB) TaskRoleRepository {
	return &GormTaskRoleRepository{db: db}
}

// Create creates a new workflow role
func (r *GormTaskRoleRepository) Create(role *models.TaskRole) error {
	return r.db.Create(role).Error
}

// FindByID finds a workflow role by ID
func (r *GormTaskRoleRepository) FindByID(id uint64) (*models.TaskRole, error) {
	var role models.TaskRole
	if err := r.db.Preload("DefaultAssignees").First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// Update updates a workflow role
func (r *GormTaskRoleRepository) Update(role *models.TaskRole) error {
	return r.db.Save(role).Error
}

// Deactivate soft deletes a workflow role by clearing its active flag
func (r *GormTaskRoleRepository) Deactivate(id uint64) error {
	return r.db.Model(&models.TaskRole{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// ListByProject lists a project's workflow roles ordered by position
func (r *GormTaskRoleRepository) ListByProject(projectID uint64, activeOnly bool) ([]models.TaskRole, error) {
	var roles []models.TaskRole
	query := r.db.Preload("DefaultAssignees").Where("project_id = ?", projectID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("sort_order ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// FindProjectRoles returns the subset of roleIDs that belong to the project
func (r *GormTaskRoleRepository) FindProjectRoles(projectID uint64, roleIDs []uint64) ([]models.TaskRole, error) {
	var roles []models.TaskRole
	if err := r.db.Where("project_id = ? AND id IN ?", projectID, roleIDs).
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// UpdateOrder moves a role to a new position
func (r *GormTaskRoleRepository) UpdateOrder(roleID uint64, order int) error {
	return r.db.Model(&models.TaskRole{}).
		Where("id = ?", roleID).
		Update("sort_order", order).Error
}

// NextOrder returns the next position for a new role in the project
func (r *GormTaskRoleRepository) NextOrder(projectID uint64) (int, error) {
	var role models.TaskRole
	err := r.db.Where("project_id = ?", projectID).
		Order("sort_order DESC").
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return role.Order + 1, nil
}
