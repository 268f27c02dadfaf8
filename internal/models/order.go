package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"campusmarket/internal/utils"
)

type OrderStatus string

// В исходной схеме завершение через подтверждение получения и завершение
// через выпуск эскроу кодировались двумя разными значениями. Здесь оба пути
// сходятся в одном COMPLETED.
const (
	OrderStatusPending   OrderStatus = "PENDING_CONFIRMATION"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type TradeType string

const (
	TradeTypeOffline TradeType = "OFFLINE"
	TradeTypeOnline  TradeType = "ONLINE"
)

type Order struct {
	ID      string `gorm:"primaryKey;size:21" json:"id"`
	OrderNo string `gorm:"type:varchar(32);not null;uniqueIndex" json:"orderNo"`

	BuyerID  string `gorm:"size:21;not null;index" json:"buyerID"`
	Buyer    User   `gorm:"foreignKey:BuyerID" json:"-"`
	SellerID string `gorm:"size:21;not null;index" json:"sellerID"`
	Seller   User   `gorm:"foreignKey:SellerID" json:"-"`
	ItemID   string `gorm:"size:21;not null;index" json:"itemID"`
	Item     Item   `gorm:"foreignKey:ItemID" json:"-"`

	// Amount — цена товара на момент создания ордера, не живая ссылка
	Amount decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"amount"`
	Status OrderStatus     `gorm:"type:varchar(24);not null" json:"status"`

	TradeType     TradeType `gorm:"type:varchar(10);not null" json:"tradeType"`
	TradeLocation *string   `gorm:"type:varchar(255)" json:"tradeLocation"`
	BuyerMessage  *string   `gorm:"type:text" json:"buyerMessage"`
	SellerRemark  *string   `gorm:"type:text" json:"sellerRemark"`
	TrackingNo    *string   `gorm:"type:varchar(64)" json:"trackingNo"`
	CancelReason  *string   `gorm:"type:text" json:"cancelReason"`

	// Отзывы сторон, каждый слот заполняется один раз после завершения
	BuyerComment *string `gorm:"type:text" json:"buyerComment"`
	BuyerRating  *int    `json:"buyerRating"`
	SellerComment *string `gorm:"type:text" json:"sellerComment"`
	SellerRating  *int    `json:"sellerRating"`

	FinishedAt *time.Time `json:"finishedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		if o.ID, err = utils.GenerateNanoID(); err != nil {
			return
		}
	}
	if o.OrderNo == "" {
		o.OrderNo, err = utils.GenerateOrderNo()
	}
	return
}
