package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"campusmarket/internal/models"
)

func NewDB(dsn string) (*gorm.DB, error) {
	// TranslateError нужен, чтобы нарушение уникального индекса было отличимо
	// от прочих ошибок базы (gorm.ErrDuplicatedKey)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}

	return db, nil
}

// AutoMigrate применяет схему всех моделей
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Item{},
		&models.Order{},
		&models.Escrow{},
		&models.OrderChat{},
		&models.OrderMessage{},
		&models.Notification{},
	)
}
