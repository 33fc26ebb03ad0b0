package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

type RoleAssignmentStatus string

const (
	RoleStatusPending   RoleAssignmentStatus = "pending"
	RoleStatusActive    RoleAssignmentStatus = "active"
	RoleStatusCompleted RoleAssignmentStatus = "completed"
	RoleStatusSkipped   RoleAssignmentStatus = "skipped"
)

// Resolved reports whether the assignment no longer blocks the workflow.
func (s RoleAssignmentStatus) Resolved() bool {
	return s == RoleStatusCompleted || s == RoleStatusSkipped
}

// WorkflowNotStarted is the CurrentRoleIndex value of a task whose workflow
// has not been started.
const WorkflowNotStarted = -1

// HandoffFile records metadata for a file attached to a handoff. The bytes
// themselves are stored by the upload handler; only the metadata it reports
// is kept here.
type HandoffFile struct {
	ID               uint64    `gorm:"primarykey" json:"id"`
	RoleAssignmentID uint64    `gorm:"not null;index" json:"role_assignment_id"`
	Filename         string    `gorm:"type:varchar(512);not null" json:"filename"`
	OriginalName     string    `gorm:"type:varchar(512)" json:"original_name"`
	Path             string    `gorm:"type:varchar(1024)" json:"path"`
	Size             int64     `json:"size"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// HandoffURL is a titled link attached to a handoff.
type HandoffURL struct {
	ID               uint64 `gorm:"primarykey" json:"id"`
	RoleAssignmentID uint64 `gorm:"not null;index" json:"role_assignment_id"`
	Title            string `gorm:"type:varchar(255);not null" json:"title"`
	URL              string `gorm:"type:varchar(1024);not null" json:"url"`
}

// RoleAssignment is one ordered stage of a task's role workflow. At most one
// assignment per task is active at any time; stages activate strictly in
// Order. The handoff columns are set when the stage is completed or skipped.
type RoleAssignment struct {
	ID          uint64               `gorm:"primarykey" json:"id"`
	TaskID      uint64               `gorm:"not null;index" json:"task_id"`
	RoleID      uint64               `gorm:"not null" json:"role_id"`
	Order       int                  `gorm:"column:sort_order;not null" json:"order"`
	Status      RoleAssignmentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`

	HandoffComment string     `gorm:"type:text" json:"handoff_comment,omitempty"`
	HandoffByID    *uint64    `json:"handoff_by_id,omitempty"`
	HandoffAt      *time.Time `json:"handoff_at,omitempty"`

	// Relations
	Role         TaskRole      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Assignees    []User        `gorm:"many2many:role_assignment_assignees" json:"assignees,omitempty"`
	HandoffBy    *User         `gorm:"foreignKey:HandoffByID" json:"handoff_by,omitempty"`
	HandoffFiles []HandoffFile `gorm:"foreignKey:RoleAssignmentID" json:"handoff_files,omitempty"`
	HandoffURLs  []HandoffURL  `gorm:"foreignKey:RoleAssignmentID" json:"handoff_urls,omitempty"`
}

// HasAssignee reports whether a user is assigned to this stage.
func (ra *RoleAssignment) HasAssignee(userID uint64) bool {
	for i := range ra.Assignees {
		if ra.Assignees[i].ID == userID {
			return true
		}
	}
	return false
}

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	Title       string       `gorm:"type:varchar(512);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	StatusID    *uint64      `json:"status_id,omitempty"`
	Priority    TaskPriority `gorm:"type:varchar(10)" json:"priority,omitempty"`
	ProjectID   uint64       `gorm:"not null;index" json:"project_id"`
	SprintID    *uint64      `json:"sprint_id,omitempty"`
	PhaseID     *uint64      `json:"phase_id,omitempty"`
	ParentID    *uint64      `json:"parent_id,omitempty"`
	Duration    Duration     `gorm:"embedded;embeddedPrefix:duration_" json:"duration"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Order       int          `gorm:"column:sort_order;not null;default:0" json:"order"`

	// Sequential role workflow state. CurrentRoleIndex indexes
	// RoleAssignments by position once the workflow has started.
	CurrentRoleIndex int  `gorm:"not null;default:-1" json:"current_role_index"`
	UseRoleWorkflow  bool `gorm:"not null;default:false" json:"use_role_workflow"`

	CreatedByID uint64         `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Status          *TaskStatus      `gorm:"foreignKey:StatusID" json:"status,omitempty"`
	Project         Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Parent          *Task            `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Assignees       []User           `gorm:"many2many:task_assignees" json:"assignees,omitempty"`
	RoleAssignments []RoleAssignment `gorm:"foreignKey:TaskID" json:"role_assignments,omitempty"`
	Dependencies    []Task           `gorm:"many2many:task_dependencies;joinForeignKey:TaskID;joinReferences:DependsOnID" json:"dependencies,omitempty"`
	CreatedBy       User             `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// CurrentRoleAssignment returns the assignment at CurrentRoleIndex, or nil
// when the workflow has not started or the index is out of range.
// RoleAssignments must be loaded ordered by their Order column.
func (t *Task) CurrentRoleAssignment() *RoleAssignment {
	if t.CurrentRoleIndex >= 0 && t.CurrentRoleIndex < len(t.RoleAssignments) {
		return &t.RoleAssignments[t.CurrentRoleIndex]
	}
	return nil
}

// NextRoleAssignment returns the assignment after the current one, or nil at
// the end of the sequence.
func (t *Task) NextRoleAssignment() *RoleAssignment {
	next := t.CurrentRoleIndex + 1
	if next < len(t.RoleAssignments) {
		return &t.RoleAssignments[next]
	}
	return nil
}

// IsWorkflowComplete reports whether every stage is resolved. A task without
// a configured workflow is trivially complete.
func (t *Task) IsWorkflowComplete() bool {
	if !t.UseRoleWorkflow || len(t.RoleAssignments) == 0 {
		return true
	}
	for i := range t.RoleAssignments {
		if !t.RoleAssignments[i].Status.Resolved() {
			return false
		}
	}
	return true
}

// HasActiveRole reports whether any stage is currently active.
func (t *Task) HasActiveRole() bool {
	for i := range t.RoleAssignments {
		if t.RoleAssignments[i].Status == RoleStatusActive {
			return true
		}
	}
	return false
}
