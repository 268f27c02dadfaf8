package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campusmarket/internal/utils"
)

type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusReserved  ItemStatus = "RESERVED"
	ItemStatusSold      ItemStatus = "SOLD"
	ItemStatusDelisted  ItemStatus = "DELISTED"
)

// Item — объявление о продаже. Статус объявления и статус ордера независимы:
// создание ордера резервирует товар, отклонение или отмена возвращает его в
// продажу.
type Item struct {
	ID          string          `gorm:"primaryKey;size:21" json:"id"`
	OwnerID     string          `gorm:"size:21;not null;index" json:"ownerID"`
	Owner       User            `gorm:"foreignKey:OwnerID" json:"-"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(64);index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"price"`
	Status      ItemStatus      `gorm:"type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
	Images      datatypes.JSON  `gorm:"type:json" json:"images" swaggertype:"array,string"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID, err = utils.GenerateNanoID()
	}
	return
}
