package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/orderchat"
	"campusmarket/internal/services"
)

// OrderChatWS godoc
// @Summary Вебсокет чата ордера
// @Description После подключения клиент получает недавнюю историю из кэша, дальше сообщения приходят по мере отправки.
// @Tags chat
// @Security BearerAuth
// @Param id path string true "id ордера"
// @Router /ws/orders/{id}/chat [get]
func OrderChatWS(db *gorm.DB, cache *services.ChatCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		chat, _, ok := chatForOrder(c, db, c.Param("id"), userID)
		if !ok {
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		orderchat.AddClient(chat.ID, conn)
		defer func() {
			orderchat.RemoveClient(chat.ID, conn)
			conn.Close()
		}()

		if cache != nil {
			if history, err := cache.GetHistory(context.Background(), chat.ID); err == nil {
				for _, m := range history {
					if err := orderchat.Send(conn, m); err != nil {
						return
					}
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
