package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/orderchat"
	"campusmarket/internal/services"
	"campusmarket/internal/services/storage"
	"campusmarket/internal/utils"
)

type SendMessageRequest struct {
	Content string `json:"content"`
}

// chatForOrder находит чат ордера и проверяет, что актор — одна из сторон.
func chatForOrder(c *gin.Context, db *gorm.DB, orderID, userID string) (*models.OrderChat, *models.Order, bool) {
	var order models.Order
	if err := db.Where("id = ?", orderID).First(&order).Error; err != nil {
		respondNotFound(c, "order not found")
		return nil, nil, false
	}
	if order.BuyerID != userID && order.SellerID != userID {
		respondForbidden(c)
		return nil, nil, false
	}
	var chat models.OrderChat
	if err := db.Where("order_id = ?", order.ID).First(&chat).Error; err != nil {
		respondNotFound(c, "chat not found")
		return nil, nil, false
	}
	return &chat, &order, true
}

func fillSenderNames(db *gorm.DB, msgs []models.OrderMessage) {
	names := map[string]string{}
	for i := range msgs {
		name, ok := names[msgs[i].UserID]
		if !ok {
			var u models.User
			if db.Where("id = ?", msgs[i].UserID).First(&u).Error == nil {
				name = u.Nickname
			}
			names[msgs[i].UserID] = name
		}
		msgs[i].SenderName = name
	}
}

// ListOrderMessages godoc
// @Summary История сообщений чата ордера
// @Tags chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "id ордера"
// @Param limit query int false "размер страницы"
// @Param offset query int false "смещение"
// @Success 200 {object} Response{data=[]models.OrderMessage}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /orders/{id}/messages [get]
func ListOrderMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		chat, _, ok := chatForOrder(c, db, c.Param("id"), userID)
		if !ok {
			return
		}
		limit, offset := parsePagination(c)
		var msgs []models.OrderMessage
		if err := db.Where("chat_id = ?", chat.ID).
			Order("created_at asc").Limit(limit).Offset(offset).
			Find(&msgs).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		fillSenderNames(db, msgs)
		respondOK(c, msgs)
	}
}

// SendOrderMessage godoc
// @Summary Отправка сообщения в чат ордера
// @Description Текст в json либо файл в multipart-поле file.
// @Tags chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id ордера"
// @Param input body SendMessageRequest false "сообщение"
// @Success 200 {object} Response{data=models.OrderMessage}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /orders/{id}/messages [post]
func SendOrderMessage(db *gorm.DB, cache *services.ChatCache, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		chat, _, ok := chatForOrder(c, db, c.Param("id"), userID)
		if !ok {
			return
		}

		msg := models.OrderMessage{ChatID: chat.ID, UserID: userID}
		if fileHeader, err := c.FormFile("file"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				respondErr(c, http.StatusBadRequest, "file open error")
				return
			}
			defer file.Close()
			suffix, err := utils.GenerateNanoID()
			if err != nil {
				respondErr(c, http.StatusInternalServerError, "id error")
				return
			}
			objectName := "chats/" + chat.ID + "/" + suffix
			contentType := fileHeader.Header.Get("Content-Type")
			if _, err := store.Upload(context.Background(), objectName, file, fileHeader.Size, contentType); err != nil {
				respondErr(c, http.StatusInternalServerError, "upload error")
				return
			}
			url, err := store.GetURL(context.Background(), objectName, 24*time.Hour)
			if err != nil {
				respondErr(c, http.StatusInternalServerError, "url error")
				return
			}
			size := fileHeader.Size
			msg.Type = models.MessageTypeFile
			msg.Content = fileHeader.Filename
			msg.FileURL = &url
			msg.FileType = &contentType
			msg.FileSize = &size
		} else {
			var r SendMessageRequest
			if err := c.BindJSON(&r); err != nil || r.Content == "" {
				respondErr(c, http.StatusBadRequest, "content required")
				return
			}
			msg.Type = models.MessageTypeText
			msg.Content = r.Content
		}

		if err := db.Create(&msg).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		var sender models.User
		if db.Where("id = ?", userID).First(&sender).Error == nil {
			msg.SenderName = sender.Nickname
		}
		if cache != nil {
			_ = cache.AddMessage(context.Background(), chat.ID, msg)
		}
		orderchat.Broadcast(chat.ID, msg)
		respondOK(c, msg)
	}
}

// ReadOrderMessage godoc
// @Summary Отметка сообщения прочитанным
// @Description Прочитать можно только чужое сообщение.
// @Tags chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "id ордера"
// @Param msgId path string true "id сообщения"
// @Success 200 {object} Response{data=models.OrderMessage}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /orders/{id}/messages/{msgId}/read [patch]
func ReadOrderMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		chat, _, ok := chatForOrder(c, db, c.Param("id"), userID)
		if !ok {
			return
		}
		var msg models.OrderMessage
		if err := db.Where("id = ? AND chat_id = ?", c.Param("msgId"), chat.ID).First(&msg).Error; err != nil {
			respondNotFound(c, "message not found")
			return
		}
		if msg.UserID == userID {
			respondForbidden(c)
			return
		}
		if msg.ReadAt == nil {
			now := time.Now()
			if err := db.Model(&msg).Update("read_at", now).Error; err != nil {
				respondErr(c, http.StatusInternalServerError, "db error")
				return
			}
			msg.ReadAt = &now
			orderchat.BroadcastRead(chat.ID, msg)
		}
		respondOK(c, msg)
	}
}
