package handlers

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/notifications"
)

// EscrowSweeper — фоновая сверка эскроу. Раз в интервал находит депозиты с
// прошедшим дедлайном и принудительно доводит их до терминального состояния:
// оплаченный — до возврата покупателю, неоплаченный — до EXPIRED. Использует
// те же условные обновления, что и интерактивные обработчики, поэтому гонка с
// действием пользователя для свипера всегда no-op.
type EscrowSweeper struct {
	db       *gorm.DB
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewEscrowSweeper(db *gorm.DB, interval time.Duration) *EscrowSweeper {
	return &EscrowSweeper{
		db:       db,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *EscrowSweeper) Start() {
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SweepOnce()
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *EscrowSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// SweepOnce выполняет один проход сверки. Ошибка по отдельной строке
// логируется и не прерывает остальную пачку.
func (s *EscrowSweeper) SweepOnce() {
	now := time.Now()

	var paid []models.Escrow
	if err := s.db.Where("status = ? AND expires_at < ?", models.EscrowStatusPaid, now).
		Find(&paid).Error; err != nil {
		log.Printf("escrow sweeper: query paid: %v", err)
	} else {
		for i := range paid {
			if err := s.resolvePaid(&paid[i]); err != nil {
				// Гонка с интерактивным действием — no-op, строка вернётся
				// в следующий проход
				if !errors.Is(err, errStatusChanged) && !errors.Is(err, errOrderFinished) {
					log.Printf("escrow sweeper: escrow %s: %v", paid[i].ID, err)
				}
			}
		}
	}

	var unpaid []models.Escrow
	if err := s.db.Where("status = ? AND expires_at < ?", models.EscrowStatusUnpaid, now).
		Find(&unpaid).Error; err != nil {
		log.Printf("escrow sweeper: query unpaid: %v", err)
		return
	}
	for i := range unpaid {
		res := s.db.Model(&models.Escrow{}).
			Where("id = ? AND status = ?", unpaid[i].ID, models.EscrowStatusUnpaid).
			Updates(map[string]any{"status": models.EscrowStatusExpired, "remark": "auto-expired"})
		if res.Error != nil {
			log.Printf("escrow sweeper: escrow %s: %v", unpaid[i].ID, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			unpaid[i].Status = models.EscrowStatusExpired
			notifications.NotifyEscrowStatus(s.db, &unpaid[i], unpaid[i].Status)
		}
	}
}

// resolvePaid доводит просроченный оплаченный депозит до терминального
// состояния. Обычный путь: PAID → EXPIRED → REFUNDED с отменой ордера —
// оплаченный депозит не может остаться в EXPIRED, деньги обязаны вернуться
// покупателю. Если же покупатель уже подтвердил получение и ордер завершён,
// депозит выпускается продавцу: возврат за полученный товар недопустим.
func (s *EscrowSweeper) resolvePaid(escrow *models.Escrow) error {
	var order models.Order
	if err := s.db.Where("id = ?", escrow.OrderID).First(&order).Error; err != nil {
		return err
	}
	if order.Status == models.OrderStatusCompleted {
		res := s.db.Model(&models.Escrow{}).
			Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusPaid).
			Updates(map[string]any{"status": models.EscrowStatusReleased, "remark": "auto-released"})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStatusChanged
		}
		s.db.Where("id = ?", escrow.ID).First(escrow)
		notifications.NotifyEscrowStatus(s.db, escrow, escrow.Status)
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Escrow{}).
			Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusPaid).
			Updates(map[string]any{"status": models.EscrowStatusExpired, "remark": "auto-expired"})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStatusChanged
		}
		res = tx.Model(&models.Escrow{}).
			Where("id = ? AND status = ?", escrow.ID, models.EscrowStatusExpired).
			Update("status", models.EscrowStatusRefunded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStatusChanged
		}
		if err := cancelOrderForRefundTx(tx, &order, "escrow auto-expired"); err != nil {
			return err
		}
		return releaseItemTx(tx, order.ItemID)
	})
	if err != nil {
		return err
	}
	s.db.Where("id = ?", escrow.ID).First(escrow)
	s.db.Where("id = ?", order.ID).First(&order)
	notifications.NotifyEscrowStatus(s.db, escrow, escrow.Status)
	notifyOrderStatus(s.db, &order)
	return nil
}
