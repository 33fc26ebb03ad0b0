package models

import "time"

// TaskStatus is a project-scoped status column. The entry with the highest
// Order is treated as the project's completed status.
type TaskStatus struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	ProjectID uint64    `gorm:"not null;index:idx_task_statuses_project_order" json:"project_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Color     string    `gorm:"type:varchar(20);default:'#6b7280'" json:"color"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultTaskStatuses is the status set seeded into a project that has none.
func DefaultTaskStatuses(projectID uint64) []TaskStatus {
	return []TaskStatus{
		{Name: "To Do", Color: "#fbbf24", Order: 0, ProjectID: projectID},
		{Name: "In Progress", Color: "#3b82f6", Order: 1, ProjectID: projectID},
		{Name: "Review", Color: "#8b5cf6", Order: 2, ProjectID: projectID},
		{Name: "Completed", Color: "#10b981", Order: 3, ProjectID: projectID},
	}
}
