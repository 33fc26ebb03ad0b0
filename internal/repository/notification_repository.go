package repository

import (
	"time"

	"github.com/mwrueen/offtix-back/internal/database"
	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/utils"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create persists a notification
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(id uint64) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListForUser lists a page of the user's notifications, newest first, along
// with the total number of notifications the user has.
func (r *GormNotificationRepository) ListForUser(userID uint64, params utils.PaginationParams) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").
		Scopes(database.Paginate(params)).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// CountUnread counts a user's unread notifications
func (r *GormNotificationRepository) CountUnread(userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one notification as read
func (r *GormNotificationRepository) MarkRead(id uint64, at time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

// MarkAllRead marks all of a user's notifications as read
func (r *GormNotificationRepository) MarkAllRead(userID uint64, at time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}
