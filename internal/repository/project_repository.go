package repository

import (
	"github.com/mwrueen/offtix-back/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// FindByID finds a project by ID with optional preloading
func (r *GormProjectRepository) FindByID(id uint64, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete deletes a project along with its members and statuses
func (r *GormProjectRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.TaskStatus{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
}

// AddMember adds a member to a project
func (r *GormProjectRepository) AddMember(member *models.ProjectMember) error {
	return r.db.Create(member).Error
}

// RemoveMember removes a member from a project
func (r *GormProjectRepository) RemoveMember(projectID, userID uint64) error {
	return r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

// ListStatuses lists a project's task statuses ordered by position
func (r *GormProjectRepository) ListStatuses(projectID uint64) ([]models.TaskStatus, error) {
	var statuses []models.TaskStatus
	if err := r.db.Where("project_id = ?", projectID).
		Order("sort_order ASC").
		Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// SeedDefaultStatuses creates the default status set for a project
func (r *GormProjectRepository) SeedDefaultStatuses(projectID uint64) ([]models.TaskStatus, error) {
	statuses := models.DefaultTaskStatuses(projectID)
	if err := r.db.Create(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// FindStatus finds a task status by ID
func (r *GormProjectRepository) FindStatus(statusID uint64) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := r.db.First(&status, statusID).Error; err != nil {
		return nil, err
	}
	return &status, nil
}
