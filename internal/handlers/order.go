package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/notifications"
)

type CreateOrderRequest struct {
	ItemID        string  `json:"item_id"`
	TradeType     string  `json:"trade_type"`
	TradeLocation *string `json:"trade_location"`
	BuyerMessage  *string `json:"buyer_message"`
}

// loadOrderFull собирает ордер с развёрнутыми товаром и сторонами.
func loadOrderFull(db *gorm.DB, orderID string) (*models.OrderFull, error) {
	var order models.Order
	if err := db.Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	full := models.OrderFull{Order: order}
	if err := db.Where("id = ?", order.ItemID).First(&full.Item).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id = ?", order.BuyerID).First(&full.Buyer).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id = ?", order.SellerID).First(&full.Seller).Error; err != nil {
		return nil, err
	}
	full.Buyer.Password, full.Buyer.TOTPSecret = nil, nil
	full.Seller.Password, full.Seller.TOTPSecret = nil, nil
	return &full, nil
}

// CreateOrder godoc
// @Summary Создание ордера покупателем
// @Description Создаёт ордер на доступный товар и резервирует его. Владелец товара не может купить свой же товар.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body CreateOrderRequest true "ордер"
// @Success 200 {object} Response{data=models.OrderFull}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /client/orders [post]
func CreateOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var r CreateOrderRequest
		if err := c.BindJSON(&r); err != nil || r.ItemID == "" {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		tradeType := models.TradeType(r.TradeType)
		if tradeType != models.TradeTypeOffline && tradeType != models.TradeTypeOnline {
			respondErr(c, http.StatusBadRequest, "invalid trade type")
			return
		}

		var item models.Item
		if err := db.Where("id = ?", r.ItemID).First(&item).Error; err != nil {
			respondNotFound(c, "item not found")
			return
		}
		if item.OwnerID == userID {
			respondForbidden(c)
			return
		}
		if item.Status != models.ItemStatusAvailable {
			respondPrecondition(c, "item is not available")
			return
		}

		order := models.Order{
			BuyerID:       userID,
			SellerID:      item.OwnerID,
			ItemID:        item.ID,
			Amount:        item.Price,
			Status:        models.OrderStatusPending,
			TradeType:     tradeType,
			TradeLocation: r.TradeLocation,
			BuyerMessage:  r.BuyerMessage,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			// Резерв товара — условное обновление, проигравший из двух
			// одновременных покупателей получает precondition failed
			res := tx.Model(&models.Item{}).
				Where("id = ? AND status = ?", item.ID, models.ItemStatusAvailable).
				Update("status", models.ItemStatusReserved)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errItemUnavailable
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			chat := models.OrderChat{OrderID: order.ID}
			return tx.Create(&chat).Error
		})
		if errors.Is(err, errItemUnavailable) {
			respondPrecondition(c, "item is not available")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}

		notifications.NotifyOrderCreated(db, &order, item.Name)

		full, err := loadOrderFull(db, order.ID)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, full)
	}
}

var errItemUnavailable = errors.New("item is not available")

// ListClientOrders godoc
// @Summary Ордера текущего пользователя
// @Description Список ордеров, где пользователь выступает покупателем или продавцом.
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param role query string false "buyer или seller"
// @Param status query string false "статус ордера"
// @Param limit query int false "размер страницы"
// @Param offset query int false "смещение"
// @Success 200 {object} Response{data=[]models.Order}
// @Router /client/orders [get]
func ListClientOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		limit, offset := parsePagination(c)
		q := db.Model(&models.Order{})
		switch c.Query("role") {
		case "buyer":
			q = q.Where("buyer_id = ?", userID)
		case "seller":
			q = q.Where("seller_id = ?", userID)
		default:
			q = q.Where("buyer_id = ? OR seller_id = ?", userID, userID)
		}
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		var orders []models.Order
		if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, orders)
	}
}

// GetOrder godoc
// @Summary Ордер по id
// @Description Ордер видят только его стороны.
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "id ордера"
// @Success 200 {object} Response{data=models.OrderFull}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /orders/{id} [get]
func GetOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		full, err := loadOrderFull(db, c.Param("id"))
		if err != nil {
			respondNotFound(c, "order not found")
			return
		}
		if full.BuyerID != userID && full.SellerID != userID {
			respondForbidden(c)
			return
		}
		respondOK(c, full)
	}
}
