package models

import (
	"time"

	"gorm.io/gorm"

	"campusmarket/internal/utils"
)

type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeSystem MessageType = "SYSTEM"
	MessageTypeFile   MessageType = "FILE"
)

type OrderMessage struct {
	ID        string      `gorm:"primaryKey;size:21" json:"id"`
	ChatID    string      `gorm:"size:21;not null;index" json:"chatID"`
	Chat      OrderChat   `gorm:"foreignKey:ChatID" json:"-"`
	UserID    string      `gorm:"size:21;not null;index" json:"userID"`
	User      User        `gorm:"foreignKey:UserID" json:"-"`
	Type      MessageType `gorm:"type:varchar(10);not null" json:"type"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	FileURL   *string     `gorm:"type:varchar(512)" json:"fileURL,omitempty"`
	FileType  *string     `gorm:"type:varchar(64)" json:"fileType,omitempty"`
	FileSize  *int64      `json:"fileSize,omitempty"`
	ReadAt    *time.Time  `json:"readAt"`
	CreatedAt time.Time   `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`

	// Имя отправителя, подставляется при выдаче
	SenderName string `gorm:"-" json:"senderName,omitempty"`
}

func (m *OrderMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID, err = utils.GenerateNanoID()
	}
	return
}
