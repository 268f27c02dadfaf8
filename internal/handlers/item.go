package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/services/storage"
	"campusmarket/internal/utils"
)

type CreateItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
}

type UpdateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Price       *string `json:"price"`
	Delist      *bool   `json:"delist"`
}

// ListItems godoc
// @Summary Список объявлений
// @Description Возвращает доступные объявления с фильтрами по категории и продавцу.
// @Tags items
// @Produce json
// @Param category query string false "категория"
// @Param owner_id query string false "продавец"
// @Param status query string false "статус объявления"
// @Param limit query int false "размер страницы"
// @Param offset query int false "смещение"
// @Success 200 {object} Response{data=[]models.Item}
// @Router /items [get]
func ListItems(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := parsePagination(c)
		q := db.Model(&models.Item{})
		if cat := c.Query("category"); cat != "" {
			q = q.Where("category = ?", cat)
		}
		if owner := c.Query("owner_id"); owner != "" {
			q = q.Where("owner_id = ?", owner)
		}
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		} else {
			q = q.Where("status = ?", models.ItemStatusAvailable)
		}
		var items []models.Item
		if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, items)
	}
}

// GetItem godoc
// @Summary Объявление по id
// @Tags items
// @Produce json
// @Param id path string true "id объявления"
// @Success 200 {object} Response{data=models.Item}
// @Failure 404 {object} Response
// @Router /items/{id} [get]
func GetItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item models.Item
		if err := db.Where("id = ?", c.Param("id")).First(&item).Error; err != nil {
			respondNotFound(c, "item not found")
			return
		}
		respondOK(c, item)
	}
}

// CreateItem godoc
// @Summary Создание объявления
// @Tags items
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body CreateItemRequest true "объявление"
// @Success 200 {object} Response{data=models.Item}
// @Failure 400 {object} Response
// @Router /client/items [post]
func CreateItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var r CreateItemRequest
		if err := c.BindJSON(&r); err != nil || r.Name == "" {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil || !price.IsPositive() {
			respondErr(c, http.StatusBadRequest, "invalid price")
			return
		}
		item := models.Item{
			OwnerID:     userID,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Price:       price,
			Status:      models.ItemStatusAvailable,
			Images:      datatypes.JSON([]byte("[]")),
		}
		if err := db.Create(&item).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, item)
	}
}

// UpdateItem godoc
// @Summary Обновление своего объявления
// @Tags items
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "id объявления"
// @Param input body UpdateItemRequest true "изменения"
// @Success 200 {object} Response{data=models.Item}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 412 {object} Response
// @Router /client/items/{id} [put]
func UpdateItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var item models.Item
		if err := db.Where("id = ?", c.Param("id")).First(&item).Error; err != nil {
			respondNotFound(c, "item not found")
			return
		}
		if item.OwnerID != userID {
			respondForbidden(c)
			return
		}
		var r UpdateItemRequest
		if err := c.BindJSON(&r); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		updates := map[string]any{}
		if r.Name != nil {
			updates["name"] = *r.Name
		}
		if r.Description != nil {
			updates["description"] = *r.Description
		}
		if r.Category != nil {
			updates["category"] = *r.Category
		}
		if r.Price != nil {
			price, err := decimal.NewFromString(*r.Price)
			if err != nil || !price.IsPositive() {
				respondErr(c, http.StatusBadRequest, "invalid price")
				return
			}
			updates["price"] = price
		}
		if r.Delist != nil && *r.Delist {
			// Снять с продажи можно только свободный товар, зарезервированный
			// под ордер трогать нельзя
			if item.Status != models.ItemStatusAvailable {
				respondPrecondition(c, "item is not available")
				return
			}
			updates["status"] = models.ItemStatusDelisted
		}
		if len(updates) > 0 {
			if err := db.Model(&item).Updates(updates).Error; err != nil {
				respondErr(c, http.StatusInternalServerError, "db error")
				return
			}
		}
		db.Where("id = ?", item.ID).First(&item)
		respondOK(c, item)
	}
}

// UploadItemImage godoc
// @Summary Загрузка изображения объявления
// @Tags items
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "id объявления"
// @Param file formData file true "изображение"
// @Success 200 {object} Response{data=models.Item}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /client/items/{id}/images [post]
func UploadItemImage(db *gorm.DB, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var item models.Item
		if err := db.Where("id = ?", c.Param("id")).First(&item).Error; err != nil {
			respondNotFound(c, "item not found")
			return
		}
		if item.OwnerID != userID {
			respondForbidden(c)
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondErr(c, http.StatusBadRequest, "file required")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondErr(c, http.StatusBadRequest, "file open error")
			return
		}
		defer file.Close()

		suffix, err := utils.GenerateNanoID()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "id error")
			return
		}
		objectName := "items/" + item.ID + "/" + suffix
		contentType := fileHeader.Header.Get("Content-Type")
		if _, err := store.Upload(context.Background(), objectName, file, fileHeader.Size, contentType); err != nil {
			respondErr(c, http.StatusInternalServerError, "upload error")
			return
		}
		url, err := store.GetURL(context.Background(), objectName, 24*time.Hour)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "url error")
			return
		}

		var images []string
		if len(item.Images) > 0 {
			_ = json.Unmarshal(item.Images, &images)
		}
		images = append(images, url)
		raw, _ := json.Marshal(images)
		if err := db.Model(&item).Update("images", datatypes.JSON(raw)).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		item.Images = datatypes.JSON(raw)
		respondOK(c, item)
	}
}
