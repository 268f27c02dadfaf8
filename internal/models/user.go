package models

import (
	"time"

	"gorm.io/gorm"

	"campusmarket/internal/utils"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:21"`
	Username     string    `gorm:"type:varchar(255);not null;unique"`
	Nickname     string    `gorm:"type:varchar(255)"`
	AvatarURL    *string   `gorm:"type:varchar(512)"`
	Campus       string    `gorm:"type:varchar(255)"`
	Password     *string   `gorm:"type:varchar(255)"`
	TwoFAEnabled bool      `gorm:"not null;default:false"`
	TOTPSecret   *string   `gorm:"type:varchar(255)"`
	RegistredAt  time.Time `gorm:"autoCreateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = utils.GenerateNanoID()
	}
	return
}
