package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response — единый конверт всех ответов API.
// Code дублирует HTTP-статус, чтобы клиенты могли не смотреть на заголовки.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "ok", Data: data})
}

func respondErr(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: status, Message: msg})
}

// Отображение таксономии ошибок ядра на HTTP-статусы:
// NotFound=404, Forbidden=403, Conflict=409, PreconditionFailed=412,
// Expired=410, ошибки валидации=400.

func respondNotFound(c *gin.Context, msg string) { respondErr(c, http.StatusNotFound, msg) }

func respondForbidden(c *gin.Context) { respondErr(c, http.StatusForbidden, "forbidden") }

func respondConflict(c *gin.Context, msg string) { respondErr(c, http.StatusConflict, msg) }

func respondPrecondition(c *gin.Context, msg string) {
	respondErr(c, http.StatusPreconditionFailed, msg)
}

func respondExpired(c *gin.Context, msg string) { respondErr(c, http.StatusGone, msg) }

// actorID возвращает идентификатор действующего пользователя, положенный
// AuthMiddleware в контекст запроса.
func actorID(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		respondErr(c, http.StatusUnauthorized, "no user")
		return "", false
	}
	return v.(string), true
}
