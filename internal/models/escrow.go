package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"campusmarket/internal/utils"
)

type EscrowStatus string

const (
	EscrowStatusUnpaid   EscrowStatus = "UNPAID"
	EscrowStatusPaid     EscrowStatus = "PAID"
	EscrowStatusReleased EscrowStatus = "RELEASED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
	EscrowStatusExpired  EscrowStatus = "EXPIRED"
)

type PaymentMethod string

const (
	PaymentMethodAlipay PaymentMethod = "ALIPAY"
	PaymentMethodWechat PaymentMethod = "WECHAT"
)

// Escrow — депозит, удерживаемый под один ордер. Контекст ордера
// денормализован при создании, чтобы запись оставалась читаемой даже после
// изменения товара или ордера.
type Escrow struct {
	ID      string `gorm:"primaryKey;size:21" json:"id"`
	OrderID string `gorm:"size:21;not null;uniqueIndex" json:"orderID"`
	Order   Order  `gorm:"foreignKey:OrderID" json:"-"`

	OrderNo  string `gorm:"type:varchar(32);not null" json:"orderNo"`
	BuyerID  string `gorm:"size:21;not null;index" json:"buyerID"`
	SellerID string `gorm:"size:21;not null;index" json:"sellerID"`
	ItemID   string `gorm:"size:21;not null" json:"itemID"`
	ItemName string `gorm:"type:varchar(255)" json:"itemName"`

	EscrowAmount decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"escrowAmount"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"totalAmount"`

	Status EscrowStatus `gorm:"type:varchar(16);not null" json:"status"`

	// Симулированные реквизиты расчётов, никакого реального сеттлмента
	ContractAddress string  `gorm:"type:varchar(64)" json:"contractAddress"`
	TxHash          *string `gorm:"type:varchar(80)" json:"txHash"`

	PaymentMethod *PaymentMethod `gorm:"type:varchar(16)" json:"paymentMethod"`
	PaidAt        *time.Time     `json:"paidAt"`
	ExpiresAt     time.Time      `gorm:"not null;index" json:"expiresAt"`
	Remark        *string        `gorm:"type:text" json:"remark"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Escrow) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID, err = utils.GenerateNanoID()
	}
	return
}
