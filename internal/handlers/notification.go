package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/mwrueen/offtix-back/internal/errors"
	"github.com/mwrueen/offtix-back/internal/middleware"
	"github.com/mwrueen/offtix-back/internal/realtime"
	"github.com/mwrueen/offtix-back/internal/services"
	"github.com/mwrueen/offtix-back/internal/utils"
)

// NotificationHandler handles notification HTTP and websocket requests.
type NotificationHandler struct {
	notificationService *services.NotificationService
	hub                 *realtime.Hub
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *services.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		hub:                 hub,
	}
}

// ListNotifications returns the caller's notifications, newest first, along
// with the unread count.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	notifications, total, unread, err := h.notificationService.ListForUser(userID, params)
	if err != nil {
		apierrors.InternalError(c, "Failed to list notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// MarkRead marks a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	notification, err := h.notificationService.MarkRead(notificationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotificationNotFound):
			apierrors.NotFound(c, err.Error())
		case errors.Is(err, services.ErrNotNotificationOwner):
			apierrors.Forbidden(c, err.Error())
		default:
			apierrors.InternalError(c, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, notification)
}

// MarkAllRead marks all of the caller's notifications as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.notificationService.MarkAllRead(userID); err != nil {
		apierrors.InternalError(c, "Failed to mark notifications as read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// Subscribe upgrades the request to a websocket that receives the caller's
// notifications as they are created.
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	h.hub.HandleConnection(c.Writer, c.Request, userID)
}
