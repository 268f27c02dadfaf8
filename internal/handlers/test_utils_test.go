package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/notifications"
	"campusmarket/internal/services"
	"campusmarket/internal/services/storage"
)

// setupTest создаёт in-memory БД и маршруты для тестов.
func setupTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// busy_timeout — чтобы конкурирующие транзакции в тестах ждали, а не
	// падали с "database is locked"
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"),
		&gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Item{},
		&models.Order{},
		&models.Escrow{},
		&models.OrderChat{},
		&models.OrderMessage{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	notifications.SetDB(db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := services.NewChatCache(rdb, 50)

	store, err := storage.New("", "", "", "", false)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	ttl := map[string]time.Duration{"access": time.Minute, "refresh": time.Hour}

	r := gin.Default()
	r.GET("/health", Health(db))
	r.POST("/auth/register", Register(db, ttl))
	r.POST("/auth/login", Login(db, ttl))
	r.POST("/auth/refresh", Refresh(db, ttl))
	r.GET("/items", ListItems(db))
	r.GET("/items/:id", GetItem(db))

	auth := r.Group("/", AuthMiddleware(db))
	auth.POST("auth/logout", Logout(db))
	auth.GET("auth/profile", Profile(db))
	auth.POST("auth/password", ChangePassword(db))
	auth.POST("auth/2fa/enable", Enable2FA(db))

	auth.POST("client/items", CreateItem(db))
	auth.PUT("client/items/:id", UpdateItem(db))
	auth.POST("client/items/:id/images", UploadItemImage(db, store))

	auth.POST("client/orders", CreateOrder(db))
	auth.GET("client/orders", ListClientOrders(db))
	auth.GET("orders/:id", GetOrder(db))
	auth.POST("orders/:id/confirm", ConfirmOrder(db))
	auth.POST("orders/:id/reject", RejectOrder(db))
	auth.POST("orders/:id/deliver", DeliverOrder(db))
	auth.POST("orders/:id/receive", ConfirmReceive(db))
	auth.POST("orders/:id/cancel", CancelOrder(db))
	auth.POST("orders/:id/comment", CommentOrder(db))

	auth.POST("client/escrows", CreateEscrow(db, 24))
	auth.GET("client/escrows/:id", GetEscrow(db))
	auth.GET("orders/:id/escrow", GetOrderEscrow(db))
	auth.POST("client/escrows/:id/pay", PayEscrow(db))
	auth.POST("client/escrows/:id/release", ReleaseEscrow(db))
	auth.POST("client/escrows/:id/refund", RefundEscrow(db))

	auth.GET("orders/:id/messages", ListOrderMessages(db))
	auth.POST("orders/:id/messages", SendOrderMessage(db, cache, store))
	auth.PATCH("orders/:id/messages/:msgId/read", ReadOrderMessage(db))
	auth.GET("ws/orders/:id/chat", OrderChatWS(db, cache))

	auth.GET("notifications", ListNotifications(db))
	auth.PATCH("notifications/:id/read", ReadNotification(db))
	auth.POST("notifications/read-all", ReadAllNotifications(db))
	auth.GET("ws/notifications", NotificationsWS(db))
	auth.GET("ws/orders/:id/status", OrderStatusWS(db))

	return db, r
}

// doJSON выполняет запрос к роутеру и возвращает рекордер ответа.
func doJSON(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// decodeData распаковывает поле data из конверта ответа.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("envelope: %v (%s)", err, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("data: %v (%s)", err, w.Body.String())
		}
	}
}

// registerUser регистрирует пользователя и возвращает access токен.
func registerUser(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"pass","password_confirm":"pass"}`
	w := doJSON(t, r, "POST", "/auth/register", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s status %d: %s", username, w.Code, w.Body.String())
	}
	var tok TokenResponse
	decodeData(t, w, &tok)
	return tok.AccessToken
}

// createTestItem заводит товар напрямую в базе.
func createTestItem(t *testing.T, db *gorm.DB, ownerID, name, price string) models.Item {
	t.Helper()
	item := models.Item{
		OwnerID: ownerID,
		Name:    name,
		Price:   mustDecimal(t, price),
		Status:  models.ItemStatusAvailable,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("item: %v", err)
	}
	return item
}

// createTestOrder проводит ордер через API: покупатель создаёт ордер на товар.
func createTestOrder(t *testing.T, r *gin.Engine, buyerToken, itemID string) models.OrderFull {
	t.Helper()
	body := `{"item_id":"` + itemID + `","trade_type":"OFFLINE"}`
	w := doJSON(t, r, "POST", "/client/orders", buyerToken, body)
	if w.Code != http.StatusOK {
		t.Fatalf("create order status %d: %s", w.Code, w.Body.String())
	}
	var full models.OrderFull
	decodeData(t, w, &full)
	return full
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %s: %v", s, err)
	}
	return d
}

func userByName(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		t.Fatalf("user %s: %v", username, err)
	}
	return u
}
