package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"campusmarket/internal/escrowsim"
	"campusmarket/internal/models"
	"campusmarket/internal/notifications"
)

type CreateEscrowRequest struct {
	OrderID      string `json:"order_id"`
	EscrowAmount string `json:"escrow_amount"`
	ExpireHours  *int   `json:"expire_hours"`
}

type PayEscrowRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type RefundEscrowRequest struct {
	Reason string `json:"reason"`
}

// PayEscrowResponse несёт эскроу и симулированный платёжный референс.
type PayEscrowResponse struct {
	Escrow     models.Escrow `json:"escrow"`
	PaymentRef string        `json:"paymentRef"`
}

// CreateEscrow godoc
// @Summary Создание эскроу под ордер
// @Description Покупатель открывает депозит под подтверждённый ордер. На один ордер — не более одного эскроу.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body CreateEscrowRequest true "эскроу"
// @Success 200 {object} Response{data=models.Escrow}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 412 {object} Response
// @Router /client/escrows [post]
func CreateEscrow(db *gorm.DB, defaultExpireHours int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var r CreateEscrowRequest
		if err := c.BindJSON(&r); err != nil || r.OrderID == "" {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		var order models.Order
		if err := db.Where("id = ?", r.OrderID).First(&order).Error; err != nil {
			respondNotFound(c, "order not found")
			return
		}
		if order.BuyerID != userID {
			respondForbidden(c)
			return
		}
		if order.Status != models.OrderStatusConfirmed && order.Status != models.OrderStatusCompleted {
			respondPrecondition(c, "order is not confirmed")
			return
		}
		amount, err := decimal.NewFromString(r.EscrowAmount)
		if err != nil || !amount.IsPositive() || amount.GreaterThan(order.Amount) {
			respondErr(c, http.StatusBadRequest, "invalid escrow amount")
			return
		}
		expireHours := defaultExpireHours
		if r.ExpireHours != nil {
			expireHours = *r.ExpireHours
		}

		var count int64
		db.Model(&models.Escrow{}).Where("order_id = ?", order.ID).Count(&count)
		if count > 0 {
			respondConflict(c, "escrow already exists for this order")
			return
		}

		var item models.Item
		if err := db.Where("id = ?", order.ItemID).First(&item).Error; err != nil {
			respondNotFound(c, "item not found")
			return
		}
		contract, err := escrowsim.NewContractAddress()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "contract error")
			return
		}
		escrow := models.Escrow{
			OrderID:         order.ID,
			OrderNo:         order.OrderNo,
			BuyerID:         order.BuyerID,
			SellerID:        order.SellerID,
			ItemID:          order.ItemID,
			ItemName:        item.Name,
			EscrowAmount:    amount,
			TotalAmount:     order.Amount,
			Status:          models.EscrowStatusUnpaid,
			ContractAddress: contract,
			ExpiresAt:       time.Now().Add(time.Duration(expireHours) * time.Hour),
		}
		if err := db.Create(&escrow).Error; err != nil {
			// Уникальный индекс на order_id ловит гонку двух одновременных созданий
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondConflict(c, "escrow already exists for this order")
				return
			}
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		notifications.NotifyEscrowStatus(db, &escrow, escrow.Status)
		respondOK(c, escrow)
	}
}

// PayEscrow godoc
// @Summary Оплата эскроу
// @Description Платёж проходит только до дедлайна. Просроченный депозит переводится в EXPIRED и платёж отклоняется.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id эскроу"
// @Param input body PayEscrowRequest true "способ оплаты"
// @Success 200 {object} Response{data=PayEscrowResponse}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 410 {object} Response
// @Failure 412 {object} Response
// @Router /client/escrows/{id}/pay [post]
func PayEscrow(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var escrow models.Escrow
		if err := db.Where("id = ?", c.Param("id")).First(&escrow).Error; err != nil {
			respondNotFound(c, "escrow not found")
			return
		}
		if escrow.BuyerID != userID {
			respondForbidden(c)
			return
		}
		var r PayEscrowRequest
		if err := c.BindJSON(&r); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		method := models.PaymentMethod(r.PaymentMethod)
		if method != models.PaymentMethodAlipay && method != models.PaymentMethodWechat {
			respondErr(c, http.StatusBadRequest, "invalid payment method")
			return
		}

		txHash, err := escrowsim.NewTxHash()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "tx error")
			return
		}
		now := time.Now()
		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Escrow{}).
				Where("id = ? AND status = ? AND expires_at > ?",
					escrow.ID, models.EscrowStatusUnpaid, now).
				Updates(map[string]any{
					"status":         models.EscrowStatusPaid,
					"payment_method": method,
					"paid_at":        now,
					"tx_hash":        txHash,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStatusChanged
			}
			// Оплата депозита как минимум подтверждает ордер
			return tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", escrow.OrderID, models.OrderStatusPending).
				Update("status", models.OrderStatusConfirmed).Error
		})
		if errors.Is(err, errStatusChanged) {
			// Либо депозит уже не UNPAID, либо дедлайн прошёл. Просроченный
			// UNPAID переводим в терминальный EXPIRED лениво, не дожидаясь свипера.
			res := db.Model(&models.Escrow{}).
				Where("id = ? AND status = ? AND expires_at <= ?",
					escrow.ID, models.EscrowStatusUnpaid, now).
				Updates(map[string]any{"status": models.EscrowStatusExpired, "remark": "auto-expired"})
			if res.Error == nil && res.RowsAffected > 0 {
				escrow.Status = models.EscrowStatusExpired
				notifications.NotifyEscrowStatus(db, &escrow, escrow.Status)
				respondExpired(c, "escrow expired")
				return
			}
			respondPrecondition(c, "escrow is not payable")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		db.Where("id = ?", escrow.ID).First(&escrow)
		notifications.NotifyEscrowStatus(db, &escrow, escrow.Status)
		var order models.Order
		if db.Where("id = ?", escrow.OrderID).First(&order).Error == nil {
			notifyOrderStatus(db, &order)
		}
		respondOK(c, PayEscrowResponse{Escrow: escrow, PaymentRef: txHash})
	}
}

// ReleaseEscrow godoc
// @Summary Выпуск эскроу продавцу
// @Description Переводит депозит продавцу и завершает ордер в той же транзакции.
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param id path string true "id эскроу"
// @Success 200 {object} Response{data=models.Escrow}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /client/escrows/{id}/release [post]
func ReleaseEscrow(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var escrow models.Escrow
		if err := db.Where("id = ?", c.Param("id")).First(&escrow).Error; err != nil {
			respondNotFound(c, "escrow not found")
			return
		}
		if escrow.BuyerID != userID {
			respondForbidden(c)
			return
		}
		var order models.Order
		if err := db.Where("id = ?", escrow.OrderID).First(&order).Error; err != nil {
			respondNotFound(c, "order not found")
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Escrow{}).
				Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusPaid).
				Update("status", models.EscrowStatusReleased)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStatusChanged
			}
			if err := completeOrderTx(tx, &order); err != nil {
				// Ордер мог завершиться раньше по receive, это не конфликт
				if errors.Is(err, errStatusChanged) && order.Status == models.OrderStatusCompleted {
					return nil
				}
				return err
			}
			return nil
		})
		if errors.Is(err, errStatusChanged) {
			respondPrecondition(c, "escrow is not paid")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		db.Where("id = ?", escrow.ID).First(&escrow)
		notifications.NotifyEscrowStatus(db, &escrow, escrow.Status)
		notifyOrderStatus(db, &order)
		respondOK(c, escrow)
	}
}

// RefundEscrow godoc
// @Summary Возврат эскроу покупателю
// @Description Возвращает оплаченный депозит и отменяет ордер в той же транзакции.
// @Tags escrows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id эскроу"
// @Param input body RefundEscrowRequest true "причина"
// @Success 200 {object} Response{data=models.Escrow}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /client/escrows/{id}/refund [post]
func RefundEscrow(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var escrow models.Escrow
		if err := db.Where("id = ?", c.Param("id")).First(&escrow).Error; err != nil {
			respondNotFound(c, "escrow not found")
			return
		}
		if escrow.BuyerID != userID && escrow.SellerID != userID {
			respondForbidden(c)
			return
		}
		// Тело опционально: BindJSON на пустом теле пишет 400, поэтому мягкий вариант
		var r RefundEscrowRequest
		_ = c.ShouldBindJSON(&r)
		if r.Reason == "" {
			r.Reason = "refunded by user"
		}
		var order models.Order
		if err := db.Where("id = ?", escrow.OrderID).First(&order).Error; err != nil {
			respondNotFound(c, "order not found")
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			return refundPaidEscrowTx(tx, &escrow, &order, r.Reason)
		})
		if errors.Is(err, errStatusChanged) {
			respondPrecondition(c, "escrow is not paid")
			return
		}
		if errors.Is(err, errOrderFinished) {
			respondPrecondition(c, "order already completed")
			return
		}
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		db.Where("id = ?", escrow.ID).First(&escrow)
		db.Where("id = ?", order.ID).First(&order)
		notifications.NotifyEscrowStatus(db, &escrow, escrow.Status)
		notifyOrderStatus(db, &order)
		respondOK(c, escrow)
	}
}

// errOrderFinished: ордер уже завершён, возврат депозита невозможен —
// REFUNDED обязан сопровождаться отменой ордера.
var errOrderFinished = errors.New("order already completed")

// refundPaidEscrowTx — общая компенсация для ручного возврата и свипера:
// PAID → REFUNDED, ордер → CANCELLED, товар обратно в продажу. Всё в одной
// транзакции, эскроу и ордер никогда не расходятся во мнении об исходе сделки.
func refundPaidEscrowTx(tx *gorm.DB, escrow *models.Escrow, order *models.Order, remark string) error {
	res := tx.Model(&models.Escrow{}).
		Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusPaid).
		Updates(map[string]any{"status": models.EscrowStatusRefunded, "remark": remark})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStatusChanged
	}
	if err := cancelOrderForRefundTx(tx, order, remark); err != nil {
		return err
	}
	return releaseItemTx(tx, order.ItemID)
}

// cancelOrderForRefundTx отменяет ордер как часть возврата депозита. Если
// ордер уже не поддаётся отмене (покупатель успел подтвердить получение),
// вся транзакция возврата откатывается: вернуть деньги за полученный товар
// нельзя.
func cancelOrderForRefundTx(tx *gorm.DB, order *models.Order, remark string) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status IN ?", order.ID,
			[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed}).
		Updates(map[string]any{"status": models.OrderStatusCancelled, "cancel_reason": remark})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current models.Order
		if err := tx.Where("id = ?", order.ID).First(&current).Error; err != nil {
			return err
		}
		if current.Status != models.OrderStatusCancelled {
			return errOrderFinished
		}
	}
	return nil
}

// GetEscrow godoc
// @Summary Эскроу по id
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param id path string true "id эскроу"
// @Success 200 {object} Response{data=models.Escrow}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /client/escrows/{id} [get]
func GetEscrow(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var escrow models.Escrow
		if err := db.Where("id = ?", c.Param("id")).First(&escrow).Error; err != nil {
			respondNotFound(c, "escrow not found")
			return
		}
		if escrow.BuyerID != userID && escrow.SellerID != userID {
			respondForbidden(c)
			return
		}
		respondOK(c, escrow)
	}
}

// GetOrderEscrow godoc
// @Summary Эскроу ордера
// @Tags escrows
// @Security BearerAuth
// @Produce json
// @Param id path string true "id ордера"
// @Success 200 {object} Response{data=models.Escrow}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /orders/{id}/escrow [get]
func GetOrderEscrow(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var escrow models.Escrow
		if err := db.Where("order_id = ?", c.Param("id")).First(&escrow).Error; err != nil {
			respondNotFound(c, "escrow not found")
			return
		}
		if escrow.BuyerID != userID && escrow.SellerID != userID {
			respondForbidden(c)
			return
		}
		respondOK(c, escrow)
	}
}
