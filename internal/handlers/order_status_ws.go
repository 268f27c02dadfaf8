package handlers

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/notifications"
)

// Подписчики на смену статуса конкретного ордера.
var orderStatusClients = struct {
	sync.RWMutex
	m map[string]map[*websocket.Conn]bool
}{m: make(map[string]map[*websocket.Conn]bool)}

type orderStatusEvent struct {
	Type    string             `json:"type"`
	OrderID string             `json:"orderID"`
	OrderNo string             `json:"orderNo"`
	Status  models.OrderStatus `json:"status"`
}

func addOrderStatusClient(orderID string, conn *websocket.Conn) {
	orderStatusClients.Lock()
	defer orderStatusClients.Unlock()
	conns, ok := orderStatusClients.m[orderID]
	if !ok {
		conns = make(map[*websocket.Conn]bool)
		orderStatusClients.m[orderID] = conns
	}
	conns[conn] = true
}

func removeOrderStatusClient(orderID string, conn *websocket.Conn) {
	orderStatusClients.Lock()
	defer orderStatusClients.Unlock()
	if conns, ok := orderStatusClients.m[orderID]; ok {
		delete(conns, conn)
	}
}

// BroadcastOrderStatus рассылает событие всем подписчикам ордера.
func BroadcastOrderStatus(order *models.Order) {
	ev := orderStatusEvent{
		Type:    "order.status_changed",
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		Status:  order.Status,
	}
	orderStatusClients.Lock()
	defer orderStatusClients.Unlock()
	for c := range orderStatusClients.m[order.ID] {
		if err := c.WriteJSON(ev); err != nil {
			c.Close()
			delete(orderStatusClients.m[order.ID], c)
		}
	}
}

// notifyOrderStatus — единая точка побочных эффектов смены статуса:
// строки уведомлений обеим сторонам плюс вебсокет ордера. Вызывается после
// коммита, сбой доставки транзакцию не трогает.
func notifyOrderStatus(db *gorm.DB, order *models.Order) {
	notifications.NotifyOrderStatus(db, order, order.Status)
	BroadcastOrderStatus(order)
}

// OrderStatusWS godoc
// @Summary Вебсокет статуса ордера
// @Description Шлёт события order.status_changed по каждому переходу, включая переходы свипера.
// @Tags orders
// @Security BearerAuth
// @Param id path string true "id ордера"
// @Router /ws/orders/{id}/status [get]
func OrderStatusWS(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var order models.Order
		if err := db.Where("id = ?", c.Param("id")).First(&order).Error; err != nil {
			respondNotFound(c, "order not found")
			return
		}
		if order.BuyerID != userID && order.SellerID != userID {
			respondForbidden(c)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		addOrderStatusClient(order.ID, conn)
		defer func() {
			removeOrderStatusClient(order.ID, conn)
			conn.Close()
		}()

		// Текущий статус сразу после подключения
		conn.WriteJSON(orderStatusEvent{
			Type:    "order.status",
			OrderID: order.ID,
			OrderNo: order.OrderNo,
			Status:  order.Status,
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
