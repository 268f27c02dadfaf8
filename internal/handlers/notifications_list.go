package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/models"
)

// ListNotifications godoc
// @Summary Уведомления текущего пользователя
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param unread query bool false "только непрочитанные"
// @Param limit query int false "размер страницы"
// @Param offset query int false "смещение"
// @Success 200 {object} Response{data=[]models.Notification}
// @Router /notifications [get]
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		limit, offset := parsePagination(c)
		q := db.Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			q = q.Where("read_at IS NULL")
		}
		var list []models.Notification
		if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, list)
	}
}
