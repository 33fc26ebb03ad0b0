package models

import (
	"time"
)

type DurationUnit string

const (
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
	DurationDays    DurationUnit = "days"
	DurationWeeks   DurationUnit = "weeks"
)

// Duration is an estimated or planned amount of work time.
type Duration struct {
	Value float64      `json:"value"`
	Unit  DurationUnit `gorm:"type:varchar(10);default:'hours'" json:"unit"`
}

// TaskRole is a project-scoped workflow stage definition. Deleting a role
// only deactivates it so historical assignments keep resolving.
type TaskRole struct {
	ID                uint64    `gorm:"primarykey" json:"id"`
	ProjectID         uint64    `gorm:"not null;index:idx_task_roles_project_active" json:"project_id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	Order             int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	Color             string    `gorm:"type:varchar(20);default:'#6366f1'" json:"color"`
	Icon              string    `gorm:"type:varchar(20)" json:"icon"`
	EstimatedDuration Duration  `gorm:"embedded;embeddedPrefix:estimated_" json:"estimated_duration"`
	IsActive          bool      `gorm:"not null;default:true;index:idx_task_roles_project_active" json:"is_active"`
	CreatedByID       uint64    `gorm:"not null" json:"created_by_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Relations
	DefaultAssignees []User `gorm:"many2many:task_role_default_assignees" json:"default_assignees,omitempty"`
	CreatedBy        User   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// DefaultTaskRoles returns the standard workflow roles seeded into a project
// that has none yet.
func DefaultTaskRoles(projectID, createdByID uint64) []TaskRole {
	roles := []TaskRole{
		{Name: "UI/UX Design", Description: "User interface and experience design", Order: 1, Color: "#8b5cf6", Icon: "🎨"},
		{Name: "Database Design", Description: "Database schema and architecture design", Order: 2, Color: "#06b6d4", Icon: "🗄️"},
		{Name: "Backend API", Description: "Server-side API development", Order: 3, Color: "#10b981", Icon: "⚙️"},
		{Name: "Frontend Development", Description: "Client-side UI implementation", Order: 4, Color: "#f59e0b", Icon: "💻"},
		{Name: "Testing & Debugging", Description: "Quality assurance and bug fixing", Order: 5, Color: "#ef4444", Icon: "🧪"},
		{Name: "Deployment & Maintenance", Description: "Deployment, monitoring and maintenance", Order: 6, Color: "#6366f1", Icon: "🚀"},
	}
	for i := range roles {
		roles[i].ProjectID = projectID
		roles[i].CreatedByID = createdByID
		roles[i].IsActive = true
	}
	return roles
}
