package repository

import (
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindWithWorkflow loads a task with its fully populated workflow state.
// Role assignments are ordered by stage so that positional indexing with
// current_role_index is valid.
func (r *GormTaskRepository) FindWithWorkflow(id uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.
		Preload("Status").
		Preload("Project").
		Preload("Parent").
		Preload("Assignees").
		Preload("CreatedBy").
		Preload("Dependencies").
		Preload("Dependencies.Status").
		Preload("RoleAssignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("role_assignments.sort_order ASC")
		}).
		Preload("RoleAssignments.Role").
		Preload("RoleAssignments.Assignees").
		Preload("RoleAssignments.HandoffBy").
		Preload("RoleAssignments.HandoffFiles").
		Preload("RoleAssignments.HandoffURLs").
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByProject lists a project's tasks ordered for board rendering
func (r *GormTaskRepository) ListByProject(projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Preload("Status").
		Preload("Assignees").
		Preload("CreatedBy").
		Preload("RoleAssignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("role_assignments.sort_order ASC")
		}).
		Preload("RoleAssignments.Role").
		Where("project_id = ?", projectID).
		Order("sort_order ASC, created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete deletes a task and its workflow state
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.deleteRoleAssignments(tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

// SetAssignees replaces the task's assignee list
func (r *GormTaskRepository) SetAssignees(taskID uint64, userIDs []uint64) error {
	task := models.Task{ID: taskID}
	users := make([]models.User, len(userIDs))
	for i, id := range userIDs {
		users[i] = models.User{ID: id}
	}
	return r.db.Model(&task).Association("Assignees").Replace(users)
}

// SetDependencies replaces the task's dependency list
func (r *GormTaskRepository) SetDependencies(taskID uint64, dependsOnIDs []uint64) error {
	task := models.Task{ID: taskID}
	deps := make([]models.Task, len(dependsOnIDs))
	for i, id := range dependsOnIDs {
		deps[i] = models.Task{ID: id}
	}
	return r.db.Model(&task).Association("Dependencies").Replace(deps)
}

// ReplaceRoleAssignments wholesale replaces the workflow configuration and
// resets the task to the not-started state.
func (r *GormTaskRepository) ReplaceRoleAssignments(taskID uint64, assignments []models.RoleAssignment, useWorkflow bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.deleteRoleAssignments(tx, taskID); err != nil {
			return err
		}

		if len(assignments) > 0 {
			for i := range assignments {
				assignments[i].TaskID = taskID
			}
			if err := tx.Create(&assignments).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Task{}).
			Where("id = ?", taskID).
			Updates(map[string]interface{}{
				"use_role_workflow":  useWorkflow,
				"current_role_index": models.WorkflowNotStarted,
			}).Error
	})
}

// StartWorkflow conditionally starts the workflow. The index update is
// guarded on the not-started value so two concurrent starts cannot both
// succeed.
func (r *GormTaskRepository) StartWorkflow(taskID, firstAssignmentID uint64, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND current_role_index = ?", taskID, models.WorkflowNotStarted).
			Update("current_role_index", 0)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWorkflow
		}

		res = tx.Model(&models.RoleAssignment{}).
			Where("id = ? AND task_id = ? AND status = ?", firstAssignmentID, taskID, models.RoleStatusPending).
			Updates(map[string]interface{}{
				"status":     models.RoleStatusActive,
				"started_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWorkflow
		}
		return nil
	})
}

// ResolveActiveRole conditionally resolves the active assignment. The status
// update is guarded on the assignment still being active, which makes the
// active-to-resolved transition effectively atomic per task: a concurrent
// resolution of the same stage matches no rows and reports ErrStaleWorkflow.
func (r *GormTaskRepository) ResolveActiveRole(res RoleResolution) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&models.RoleAssignment{}).
			Where("id = ? AND task_id = ? AND status = ?", res.AssignmentID, res.TaskID, models.RoleStatusActive).
			Updates(map[string]interface{}{
				"status":          res.Outcome,
				"completed_at":    res.Now,
				"handoff_comment": res.HandoffComment,
				"handoff_by_id":   res.HandoffByID,
				"handoff_at":      res.Now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrStaleWorkflow
		}

		for i := range res.HandoffFiles {
			res.HandoffFiles[i].RoleAssignmentID = res.AssignmentID
		}
		if len(res.HandoffFiles) > 0 {
			if err := tx.Create(&res.HandoffFiles).Error; err != nil {
				return err
			}
		}
		for i := range res.HandoffURLs {
			res.HandoffURLs[i].RoleAssignmentID = res.AssignmentID
		}
		if len(res.HandoffURLs) > 0 {
			if err := tx.Create(&res.HandoffURLs).Error; err != nil {
				return err
			}
		}

		if res.NextAssignmentID == nil {
			// Last stage: the index stays on the just-resolved assignment.
			return nil
		}

		upd = tx.Model(&models.RoleAssignment{}).
			Where("id = ? AND task_id = ? AND status = ?", *res.NextAssignmentID, res.TaskID, models.RoleStatusPending).
			Updates(map[string]interface{}{
				"status":     models.RoleStatusActive,
				"started_at": res.Now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrStaleWorkflow
		}

		return tx.Model(&models.Task{}).
			Where("id = ?", res.TaskID).
			Update("current_role_index", res.NextIndex).Error
	})
}

// deleteRoleAssignments removes a task's assignments with their assignee
// joins and handoff attachments.
func (r *GormTaskRepository) deleteRoleAssignments(tx *gorm.DB, taskID uint64) error {
	var existing []models.RoleAssignment
	if err := tx.Where("task_id = ?", taskID).Find(&existing).Error; err != nil {
		return err
	}
	for i := range existing {
		if err := tx.Model(&existing[i]).Association("Assignees").Clear(); err != nil {
			return err
		}
		if err := tx.Where("role_assignment_id = ?", existing[i].ID).
			Delete(&models.HandoffFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_assignment_id = ?", existing[i].ID).
			Delete(&models.HandoffURL{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("task_id = ?", taskID).Delete(&models.RoleAssignment{}).Error
}
