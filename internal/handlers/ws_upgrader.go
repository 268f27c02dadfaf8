package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Общий апгрейдер для всех вебсокетов API. Проверка origin отдана CORS на
// уровне роутера, фронтенд кампуса ходит с разных поддоменов.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}
