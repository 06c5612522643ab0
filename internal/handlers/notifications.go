package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telecare-server/internal/middleware"
	"telecare-server/internal/models"
	"telecare-server/internal/utils"
)

// NotificationHandler serves a user's in-app notification feed.
type NotificationHandler struct {
	DB *gorm.DB
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// GetNotifications lists the caller's notifications, newest first. Dismissed
// ones are excluded by the soft-delete scope. ?unread=true narrows to unread.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Limit(100)
	if c.Query("unread") == "true" {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications: "+err.Error())
		return
	}

	var unread int64
	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).Count(&unread).Error; err != nil {
		utils.InternalServerError(c, "Failed to count notifications: "+err.Error())
		return
	}

	utils.Success(c, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var notification models.Notification
	err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Notification not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if notification.ReadAt == nil {
		now := time.Now()
		notification.ReadAt = &now
		if err := h.DB.Save(&notification).Error; err != nil {
			utils.InternalServerError(c, "Failed to update notification: "+err.Error())
			return
		}
	}

	utils.Success(c, notification)
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	now := time.Now()
	result := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", &now)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to update notifications: "+result.Error.Error())
		return
	}

	utils.Success(c, gin.H{"marked": result.RowsAffected})
}

// Dismiss soft-deletes one of the caller's notifications.
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	result := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to dismiss notification: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Notification not found")
		return
	}

	utils.Success(c, gin.H{"dismissed": true})
}
