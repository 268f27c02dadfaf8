package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/models"
)

// ReadNotification godoc
// @Summary Отметка уведомления прочитанным
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "id уведомления"
// @Success 200 {object} Response{data=models.Notification}
// @Failure 404 {object} Response
// @Router /notifications/{id}/read [patch]
func ReadNotification(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var n models.Notification
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&n).Error; err != nil {
			respondNotFound(c, "notification not found")
			return
		}
		if n.ReadAt == nil {
			now := time.Now()
			if err := db.Model(&n).Update("read_at", now).Error; err != nil {
				respondErr(c, http.StatusInternalServerError, "db error")
				return
			}
			n.ReadAt = &now
		}
		respondOK(c, n)
	}
}

// ReadAllNotifications godoc
// @Summary Отметка всех уведомлений прочитанными
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response
// @Router /notifications/read-all [post]
func ReadAllNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		now := time.Now()
		if err := db.Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", userID).
			Update("read_at", now).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, nil)
	}
}
