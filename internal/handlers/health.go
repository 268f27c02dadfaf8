package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Health godoc
// @Summary Проверка состояния сервиса
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			respondErr(c, http.StatusServiceUnavailable, "db error")
			return
		}
		if err := sqlDB.Ping(); err != nil {
			respondErr(c, http.StatusServiceUnavailable, "db down")
			return
		}
		respondOK(c, gin.H{"status": "ok"})
	}
}
