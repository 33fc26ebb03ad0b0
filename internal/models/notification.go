package models

import "time"

type NotificationType string

const (
	NotificationInvitation        NotificationType = "invitation"
	NotificationProjectAssignment NotificationType = "project_assignment"
	NotificationSalaryUpdate      NotificationType = "salary_update"
	NotificationRoleChange        NotificationType = "role_change"
	NotificationGeneral           NotificationType = "general"
	// Role workflow notifications.
	NotificationTaskRoleAssignment NotificationType = "task_role_assignment"
	NotificationTaskRoleHandoff    NotificationType = "task_role_handoff"
	NotificationTaskRoleCompleted  NotificationType = "task_role_completed"
)

type RelatedModel string

const (
	RelatedInvitation RelatedModel = "Invitation"
	RelatedProject    RelatedModel = "Project"
	RelatedCompany    RelatedModel = "Company"
	RelatedTask       RelatedModel = "Task"
	RelatedTaskRole   RelatedModel = "TaskRole"
)

// HandoffFileMeta is the file metadata excerpt carried in a notification.
type HandoffFileMeta struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name,omitempty"`
	Path         string `json:"path,omitempty"`
}

// HandoffURLMeta is the link excerpt carried in a notification.
type HandoffURLMeta struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NotificationMetadata carries the role workflow context of a notification.
// Handoff fields are only populated when the emitting event carried a
// handoff payload.
type NotificationMetadata struct {
	TaskID         *uint64           `json:"task_id,omitempty"`
	RoleID         *uint64           `json:"role_id,omitempty"`
	RoleName       string            `gorm:"type:varchar(255)" json:"role_name,omitempty"`
	HandoffComment string            `gorm:"type:text" json:"handoff_comment,omitempty"`
	HandoffFiles   []HandoffFileMeta `gorm:"serializer:json;type:text" json:"handoff_files,omitempty"`
	HandoffURLs    []HandoffURLMeta  `gorm:"serializer:json;type:text" json:"handoff_urls,omitempty"`
	FromUserID     *uint64           `json:"from_user_id,omitempty"`
}

type Notification struct {
	ID           uint64               `gorm:"primarykey" json:"id"`
	UserID       uint64               `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type         NotificationType     `gorm:"type:varchar(40);not null" json:"type"`
	Title        string               `gorm:"type:varchar(255);not null" json:"title"`
	Message      string               `gorm:"type:text;not null" json:"message"`
	RelatedID    *uint64              `json:"related_id,omitempty"`
	RelatedModel RelatedModel         `gorm:"type:varchar(20)" json:"related_model,omitempty"`
	Metadata     NotificationMetadata `gorm:"embedded;embeddedPrefix:meta_" json:"metadata"`
	IsRead       bool                 `gorm:"not null;default:false;index:idx_notifications_user_read" json:"is_read"`
	ReadAt       *time.Time           `json:"read_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
