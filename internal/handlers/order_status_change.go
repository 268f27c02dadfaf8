package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusmarket/internal/models"
)

type SellerRemarkRequest struct {
	SellerRemark *string `json:"seller_remark"`
}

type DeliverRequest struct {
	TrackingNo string `json:"tracking_no"`
}

type CancelRequest struct {
	Reason *string `json:"reason"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}

var errStatusChanged = errors.New("order status already changed")

// completeOrderTx переводит ордер CONFIRMED → COMPLETED и помечает товар
// проданным. Вызывается только изнутри: из подтверждения получения и из
// выпуска эскроу. Возвращает errStatusChanged, если ордер уже ушёл из
// CONFIRMED.
func completeOrderTx(tx *gorm.DB, order *models.Order) error {
	now := time.Now()
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusConfirmed).
		Updates(map[string]any{"status": models.OrderStatusCompleted, "finished_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStatusChanged
	}
	if err := tx.Model(&models.Item{}).
		Where("id = ?", order.ItemID).
		Update("status", models.ItemStatusSold).Error; err != nil {
		return err
	}
	order.Status = models.OrderStatusCompleted
	order.FinishedAt = &now
	return nil
}

// releaseItemTx возвращает товар в продажу после отклонения или отмены ордера.
// Проданный товар не трогаем.
func releaseItemTx(tx *gorm.DB, itemID string) error {
	return tx.Model(&models.Item{}).
		Where("id = ? AND status = ?", itemID, models.ItemStatusReserved).
		Update("status", models.ItemStatusAvailable).Error
}

// ConfirmOrder godoc
// @Summary Подтверждение ордера продавцом
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id ордера"
// @Param input body SellerRemarkRequest false "пометка продавца"
// @Success 200 {object} Response{data=models.Order}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /orders/{id}/confirm [post]
func ConfirmOrder(db *gorm.DB) gin.HandlerFunc {
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
		if order.SellerID != userID {
			respondForbidden(c)
			return
		}
		// Тело опционально: BindJSON на пустом теле пишет 400, поэтому мягкий вариант
		var r SellerRemarkRequest
		_ = c.ShouldBindJSON(&r)

		updates := map[string]any{"status": models.OrderStatusConfirmed}
		if r.SellerRemark != nil {
			updates["seller_remark"] = *r.SellerRemark
		}
		res := db.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(updates)
		if res.Error != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		if res.RowsAffected == 0 {
			respondPrecondition(c, "order is not awaiting confirmation")
			return
		}
		order.Status = models.OrderStatusConfirmed
		order.SellerRemark = r.SellerRemark
		notifyOrderStatus(db, &order)
		respondOK(c, order)
	}
}

// RejectOrder godoc
// @Summary Отклонение ордера продавцом
// @Description Отклоняет ордер и возвращает товар в продажу.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id ордера"
// @Param input body SellerRemarkRequest false "пометка продавца"
// @Success 200 {object} Response{data=models.Order}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /orders/{id}/reject [post]
func RejectOrder(db *gorm.DB) gin.HandlerFunc {
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
		if order.SellerID != userID {
			respondForbidden(c)
			return
		}
		var r SellerRemarkRequest
		_ = c.ShouldBindJSON(&r)

		err := db.Transaction(func(tx *gorm.DB) error {
			updates := map[string]any{"status": models.OrderStatusRejected}
			if r.SellerRemark != nil {
				updates["seller_remark"] = *r.SellerRemark
			}
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStatusChanged
			}
			return releaseItemTx(tx, order.ItemID)
		})
		if errors.Is(err, errStatusChanged) {
			respondPrecondition(c, "order is not awaiting confirmation")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		order.Status = models.OrderStatusRejected
		order.SellerRemark = r.SellerRemark
		notifyOrderStatus(db, &order)
		respondOK(c, order)
	}
}

// DeliverOrder godoc
// @Summary Отметка об отправке
// @Description Записывает трек-номер. Статус ордера не меняется, это метаданные к CONFIRMED.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id ордера"
// @Param input body DeliverRequest true "трек-номер"
// @Success 200 {object} Response{data=models.Order}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /orders/{id}/deliver [post]
func DeliverOrder(db *gorm.DB) gin.HandlerFunc {
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
		if order.SellerID != userID {
			respondForbidden(c)
			return
		}
		var r DeliverRequest
		if err := c.BindJSON(&r); err != nil || r.TrackingNo == "" {
			respondErr(c, http.StatusBadRequest, "tracking number required")
			return
		}
		res := db.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusConfirmed).
			Update("tracking_no", r.TrackingNo)
		if res.Error != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		if res.RowsAffected == 0 {
			respondPrecondition(c, "order is not confirmed")
			return
		}
		order.TrackingNo = &r.TrackingNo
		respondOK(c, order)
	}
}

// ConfirmReceive godoc
// @Summary Подтверждение получения покупателем
// @Description Завершает ордер и помечает товар проданным.
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "id ордера"
// @Success 200 {object} Response{data=models.Order}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /orders/{id}/receive [post]
func ConfirmReceive(db *gorm.DB) gin.HandlerFunc {
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
		if order.BuyerID != userID {
			respondForbidden(c)
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			return completeOrderTx(tx, &order)
		})
		if errors.Is(err, errStatusChanged) {
			respondPrecondition(c, "order is not confirmed")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		notifyOrderStatus(db, &order)
		respondOK(c, order)
	}
}

// CancelOrder godoc
// @Summary Отмена ордера
// @Description Отменяет ордер любой из сторон. Товар возвращается в продажу;
// оплаченный эскроу возвращается покупателю в той же транзакции, неоплаченный
// принудительно истекает.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id ордера"
// @Param input body CancelRequest false "причина"
// @Success 200 {object} Response{data=models.Order}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /orders/{id}/cancel [post]
func CancelOrder(db *gorm.DB) gin.HandlerFunc {
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
		var r CancelRequest
		_ = c.ShouldBindJSON(&r)

		var escrow models.Escrow
		escrowFound := db.Where("order_id = ?", order.ID).First(&escrow).Error == nil

		err := db.Transaction(func(tx *gorm.DB) error {
			updates := map[string]any{"status": models.OrderStatusCancelled}
			if r.Reason != nil {
				updates["cancel_reason"] = *r.Reason
			}
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status IN ?", order.ID,
					[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed}).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStatusChanged
			}
			if err := releaseItemTx(tx, order.ItemID); err != nil {
				return err
			}
			if escrowFound {
				// Компенсация: оплаченный депозит возвращается покупателю,
				// неоплаченный закрывается как истёкший
				remark := "order cancelled"
				if err := tx.Model(&models.Escrow{}).
					Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusPaid).
					Updates(map[string]any{"status": models.EscrowStatusRefunded, "remark": remark}).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.Escrow{}).
					Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusUnpaid).
					Updates(map[string]any{"status": models.EscrowStatusExpired, "remark": remark}).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, errStatusChanged) {
			respondPrecondition(c, "order cannot be cancelled")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		order.Status = models.OrderStatusCancelled
		order.CancelReason = r.Reason
		notifyOrderStatus(db, &order)
		respondOK(c, order)
	}
}

// CommentOrder godoc
// @Summary Отзыв по завершённому ордеру
// @Description Каждая сторона оставляет отзыв и оценку один раз.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id ордера"
// @Param input body CommentRequest true "отзыв"
// @Success 200 {object} Response{data=models.Order}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 412 {object} Response
// @Router /orders/{id}/comment [post]
func CommentOrder(db *gorm.DB) gin.HandlerFunc {
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
		var r CommentRequest
		if err := c.BindJSON(&r); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		if r.Rating < 1 || r.Rating > 5 {
			respondErr(c, http.StatusBadRequest, "rating must be between 1 and 5")
			return
		}
		if order.Status != models.OrderStatusCompleted {
			respondPrecondition(c, "order is not completed")
			return
		}

		var commentCol, ratingCol string
		if userID == order.BuyerID {
			if order.BuyerComment != nil {
				respondConflict(c, "comment already set")
				return
			}
			commentCol, ratingCol = "buyer_comment", "buyer_rating"
		} else {
			if order.SellerComment != nil {
				respondConflict(c, "comment already set")
				return
			}
			commentCol, ratingCol = "seller_comment", "seller_rating"
		}
		// Слот заполняется один раз, повторный вызов упирается в условие IS NULL
		res := db.Model(&models.Order{}).
			Where("id = ? AND "+commentCol+" IS NULL", order.ID).
			Updates(map[string]any{commentCol: r.Comment, ratingCol: r.Rating})
		if res.Error != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		if res.RowsAffected == 0 {
			respondConflict(c, "comment already set")
			return
		}
		db.Where("id = ?", order.ID).First(&order)
		respondOK(c, order)
	}
}
