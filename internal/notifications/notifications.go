package notifications

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"campusmarket/internal/models"
)

var (
	db      *gorm.DB
	clients = struct {
		sync.RWMutex
		m map[string]map[*websocket.Conn]bool
	}{m: make(map[string]map[*websocket.Conn]bool)}
)

// SetDB устанавливает соединение с базой данных для обновления уведомлений.
func SetDB(d *gorm.DB) {
	db = d
}

// AddClient добавляет соединение вебсокета для пользователя.
func AddClient(userID string, conn *websocket.Conn) {
	clients.Lock()
	defer clients.Unlock()
	conns, ok := clients.m[userID]
	if !ok {
		conns = make(map[*websocket.Conn]bool)
		clients.m[userID] = conns
	}
	conns[conn] = true
}

// RemoveClient удаляет соединение вебсокета для пользователя.
func RemoveClient(userID string, conn *websocket.Conn) {
	clients.Lock()
	defer clients.Unlock()
	if conns, ok := clients.m[userID]; ok {
		delete(conns, conn)
	}
}

// Send отправляет уведомление через указанное соединение.
// При успешной отправке поле SentAt обновляется в базе данных.
func Send(conn *websocket.Conn, n models.Notification) error {
	if err := conn.WriteJSON(n); err != nil {
		return err
	}
	if db != nil {
		now := time.Now()
		db.Model(&models.Notification{}).Where("id = ?", n.ID).Update("sent_at", now)
	}
	return nil
}

// Broadcast отправляет уведомление всем соединениям пользователя.
// Доставка fire-and-forget: ошибок наружу не возвращает.
func Broadcast(userID string, n models.Notification) {
	clients.Lock()
	defer clients.Unlock()
	for c := range clients.m[userID] {
		if err := Send(c, n); err != nil {
			c.Close()
			delete(clients.m[userID], c)
		}
	}
}
