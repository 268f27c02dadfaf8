package notifications

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"campusmarket/internal/models"
)

// Виды уведомлений. Kind — дискриминатор, полезная нагрузка своя у каждого вида.
const (
	KindOrderCreated        = "order.created"
	KindOrderStatusChanged  = "order.status_changed"
	KindEscrowStatusChanged = "escrow.status_changed"
)

func emit(db *gorm.DB, userID, kind, linkTo string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notifications: marshal %s: %v", kind, err)
		return
	}
	n := models.Notification{UserID: userID, Type: kind, Payload: raw, LinkTo: linkTo}
	if err := db.Create(&n).Error; err != nil {
		log.Printf("notifications: save %s: %v", kind, err)
		return
	}
	Broadcast(userID, n)
}

// NotifyOrderCreated уведомляет обе стороны о новом ордере.
func NotifyOrderCreated(db *gorm.DB, order *models.Order, itemName string) {
	payload := map[string]any{
		"orderID":  order.ID,
		"orderNo":  order.OrderNo,
		"itemName": itemName,
		"amount":   order.Amount,
	}
	link := "/orders/" + order.ID
	emit(db, order.BuyerID, KindOrderCreated, link, payload)
	emit(db, order.SellerID, KindOrderCreated, link, payload)
}

// NotifyOrderStatus уведомляет обе стороны о смене статуса ордера.
func NotifyOrderStatus(db *gorm.DB, order *models.Order, status models.OrderStatus) {
	payload := map[string]any{
		"orderID": order.ID,
		"orderNo": order.OrderNo,
		"status":  status,
	}
	link := "/orders/" + order.ID
	emit(db, order.BuyerID, KindOrderStatusChanged, link, payload)
	emit(db, order.SellerID, KindOrderStatusChanged, link, payload)
}

// NotifyEscrowStatus уведомляет обе стороны о смене статуса эскроу.
func NotifyEscrowStatus(db *gorm.DB, escrow *models.Escrow, status models.EscrowStatus) {
	payload := map[string]any{
		"escrowID": escrow.ID,
		"orderID":  escrow.OrderID,
		"orderNo":  escrow.OrderNo,
		"status":   status,
	}
	link := "/orders/" + escrow.OrderID
	emit(db, escrow.BuyerID, KindEscrowStatusChanged, link, payload)
	emit(db, escrow.SellerID, KindEscrowStatusChanged, link, payload)
}
