package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/realtime"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/mwrueen/offtix-back/internal/utils"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService builds and persists notification records and pushes
// them over the realtime hub. Persistence and push are best-effort side
// channels: callers in the workflow path log failures instead of propagating
// them.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	hub              *realtime.Hub
}

// NewNotificationService creates a new NotificationService. hub may be nil
// when realtime delivery is disabled.
func NewNotificationService(notificationRepo repository.NotificationRepository, hub *realtime.Hub) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		hub:              hub,
	}
}

// RoleEventInput describes a workflow event addressed to a single user.
// Fan-out over a role's assignee list is the caller's responsibility.
type RoleEventInput struct {
	Type       models.NotificationType
	TargetID   uint64
	Task       *models.Task
	Role       *models.TaskRole
	Handoff    *HandoffPayload
	FromUserID *uint64
}

// EmitRoleEvent persists one notification for a workflow event. Title and
// message are derived from the event type; handoff fields are only attached
// when a handoff payload accompanies the event.
func (s *NotificationService) EmitRoleEvent(input RoleEventInput) (*models.Notification, error) {
	var title, message string
	switch input.Type {
	case models.NotificationTaskRoleAssignment:
		title = fmt.Sprintf("Assigned to role: %s", input.Role.Name)
		message = fmt.Sprintf("You have been assigned to the %q role for task %q", input.Role.Name, input.Task.Title)
	case models.NotificationTaskRoleHandoff:
		title = fmt.Sprintf("Role handoff: %s", input.Role.Name)
		message = fmt.Sprintf("The %q role is now ready for you on task %q", input.Role.Name, input.Task.Title)
	case models.NotificationTaskRoleCompleted:
		title = fmt.Sprintf("Role completed: %s", input.Role.Name)
		message = fmt.Sprintf("Your role %q has been completed on task %q", input.Role.Name, input.Task.Title)
	default:
		return nil, fmt.Errorf("unsupported role event type: %s", input.Type)
	}

	taskID := input.Task.ID
	roleID := input.Role.ID
	notification := &models.Notification{
		UserID:       input.TargetID,
		Type:         input.Type,
		Title:        title,
		Message:      message,
		RelatedID:    &taskID,
		RelatedModel: models.RelatedTask,
		Metadata: models.NotificationMetadata{
			TaskID:   &taskID,
			RoleID:   &roleID,
			RoleName: input.Role.Name,
		},
	}

	if input.Handoff != nil {
		notification.Metadata.HandoffComment = input.Handoff.Comment
		notification.Metadata.FromUserID = input.FromUserID
		for _, f := range input.Handoff.Files {
			notification.Metadata.HandoffFiles = append(notification.Metadata.HandoffFiles, models.HandoffFileMeta{
				Filename:     f.Filename,
				OriginalName: f.OriginalName,
				Path:         f.Path,
			})
		}
		for _, u := range input.Handoff.URLs {
			notification.Metadata.HandoffURLs = append(notification.Metadata.HandoffURLs, models.HandoffURLMeta{
				Title: u.Title,
				URL:   u.URL,
			})
		}
	}

	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	s.push(notification)
	return notification, nil
}

// Notify persists a plain notification outside the role workflow (company
// invitations, project assignments and the like).
func (s *NotificationService) Notify(notification *models.Notification) error {
	if err := s.notificationRepo.Create(notification); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}
	s.push(notification)
	return nil
}

// ListForUser returns a page of the user's notifications along with the
// total count and the unread count.
func (s *NotificationService) ListForUser(userID uint64, params utils.PaginationParams) ([]models.Notification, int64, int64, error) {
	notifications, total, err := s.notificationRepo.ListForUser(userID, params)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.notificationRepo.CountUnread(userID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return notifications, total, unread, nil
}

// MarkRead marks a notification as read for its owner.
func (s *NotificationService) MarkRead(notificationID, actorID uint64) (*models.Notification, error) {
	notification, err := s.notificationRepo.FindByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	if notification.UserID != actorID {
		return nil, ErrNotNotificationOwner
	}

	now := time.Now()
	if err := s.notificationRepo.MarkRead(notificationID, now); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	notification.IsRead = true
	notification.ReadAt = &now
	return notification, nil
}

// MarkAllRead marks all of a user's notifications as read.
func (s *NotificationService) MarkAllRead(userID uint64) error {
	if err := s.notificationRepo.MarkAllRead(userID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

var ErrNotNotificationOwner = errors.New("notification belongs to another user")

func (s *NotificationService) push(notification *models.Notification) {
	if s.hub == nil {
		return
	}
	s.hub.Push(notification.UserID, realtime.Event{
		Type:    "notification",
		Payload: notification,
	})
}
