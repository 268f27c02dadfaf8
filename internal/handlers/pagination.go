package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Пределы страниц едины для всех списков: объявления, ордера, сообщения,
// уведомления.
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// parsePagination читает limit/offset из query, отбрасывая мусорные значения.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if lStr := c.Query("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil && l > 0 && l <= maxPageSize {
			limit = l
		}
	}
	if oStr := c.Query("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return
}
