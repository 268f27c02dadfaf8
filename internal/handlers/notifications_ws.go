package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/notifications"
)

// NotificationsWS godoc
// @Summary Вебсокет уведомлений
// @Description При подключении досылает неотправленные уведомления, дальше пушит новые по мере появления.
// @Tags notifications
// @Security BearerAuth
// @Router /ws/notifications [get]
func NotificationsWS(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		notifications.AddClient(userID, conn)
		defer func() {
			notifications.RemoveClient(userID, conn)
			conn.Close()
		}()

		var pending []models.Notification
		if err := db.Where("user_id = ? AND sent_at IS NULL", userID).
			Order("created_at asc").Find(&pending).Error; err == nil {
			for _, n := range pending {
				if err := notifications.Send(conn, n); err != nil {
					return
				}
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
