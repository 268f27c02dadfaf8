package db

import (
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campusmarket/internal/models"
)

// SeedDemo наполняет базу демо-пользователями и товарами для dev-режима.
// Повторный запуск ничего не дублирует.
func SeedDemo(db *gorm.DB) error {
	users := []struct {
		username string
		nickname string
		campus   string
	}{
		{"alice", "Алиса", "North Campus"},
		{"bob", "Боб", "North Campus"},
		{"carol", "Кэрол", "South Campus"},
	}
	byName := make(map[string]models.User, len(users))
	for _, u := range users {
		var existing models.User
		err := db.Where("username = ?", u.username).First(&existing).Error
		if err == nil {
			byName[u.username] = existing
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		pwd := string(hash)
		nu := models.User{Username: u.username, Nickname: u.nickname, Campus: u.campus, Password: &pwd}
		if err := db.Create(&nu).Error; err != nil {
			return err
		}
		byName[u.username] = nu
	}

	items := []struct {
		owner    string
		name     string
		category string
		price    string
	}{
		{"alice", "Calculus textbook, 3rd edition", "books", "12.50"},
		{"alice", "Desk lamp", "dorm", "8.00"},
		{"bob", "Mountain bike", "sports", "150.00"},
	}
	for _, it := range items {
		var count int64
		db.Model(&models.Item{}).
			Where("owner_id = ? AND name = ?", byName[it.owner].ID, it.name).
			Count(&count)
		if count > 0 {
			continue
		}
		item := models.Item{
			OwnerID:  byName[it.owner].ID,
			Name:     it.name,
			Category: it.category,
			Price:    decimal.RequireFromString(it.price),
			Status:   models.ItemStatusAvailable,
		}
		if err := db.Create(&item).Error; err != nil {
			return err
		}
	}
	return nil
}
