package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"campusmarket/internal/models"
)

func TestOrderStatusWS(t *testing.T) {
	db, r := setupTest(t)
	sellerToken := registerUser(t, r, "ws_seller1")
	buyerToken := registerUser(t, r, "ws_buyer1")
	seller := userByName(t, db, "ws_seller1")
	item := createTestItem(t, db, seller.ID, "Speakers", "28.00")
	full := createTestOrder(t, r, buyerToken, item.ID)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders/" + full.ID + "/status?token=" + buyerToken
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil || resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("dial: %v %d", err, resp.StatusCode)
	}
	defer conn.Close()

	// первый кадр — текущий статус
	var ev struct {
		Type   string             `json:"type"`
		Status models.OrderStatus `json:"status"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("initial event: %v", err)
	}
	if ev.Type != "order.status" || ev.Status != models.OrderStatusPending {
		t.Fatalf("initial event: %+v", ev)
	}

	w := doJSON(t, r, "POST", "/orders/"+full.ID+"/confirm", sellerToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status %d", w.Code)
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("status event: %v", err)
	}
	if ev.Type != "order.status_changed" || ev.Status != models.OrderStatusConfirmed {
		t.Fatalf("status event: %+v", ev)
	}
}

func TestOrderChatWS(t *testing.T) {
	db, r := setupTest(t)
	sellerToken := registerUser(t, r, "ws_seller2")
	buyerToken := registerUser(t, r, "ws_buyer2")
	strangerToken := registerUser(t, r, "ws_stranger2")
	seller := userByName(t, db, "ws_seller2")
	item := createTestItem(t, db, seller.ID, "Easel", "11.00")
	full := createTestOrder(t, r, buyerToken, item.ID)

	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders/" + full.ID + "/chat?token="

	// посторонний не подключается
	_, resp, err := websocket.DefaultDialer.Dial(base+strangerToken, nil)
	if err == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger dial: %v %d", err, resp.StatusCode)
	}

	// история из кэша приходит сразу после подключения
	w := doJSON(t, r, "POST", "/orders/"+full.ID+"/messages", buyerToken, `{"content":"first"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("send status %d", w.Code)
	}
	conn, _, err := websocket.DefaultDialer.Dial(base+sellerToken, nil)
	if err != nil {
		t.Fatalf("seller dial: %v", err)
	}
	defer conn.Close()

	var ev struct {
		Type    string              `json:"type"`
		Message models.OrderMessage `json:"message"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("history event: %v", err)
	}
	if ev.Message.Content != "first" {
		t.Fatalf("history event: %+v", ev)
	}

	// живое сообщение
	w = doJSON(t, r, "POST", "/orders/"+full.ID+"/messages", buyerToken, `{"content":"second"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("send status %d", w.Code)
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("live event: %v", err)
	}
	if ev.Message.Content != "second" {
		t.Fatalf("live event: %+v", ev)
	}
}

func TestNotificationsWS(t *testing.T) {
	db, r := setupTest(t)
	registerUser(t, r, "ws_seller3")
	buyerToken := registerUser(t, r, "ws_buyer3")
	seller := userByName(t, db, "ws_seller3")
	item := createTestItem(t, db, seller.ID, "Printer", "35.00")

	// уведомление появляется до подключения и досылается при коннекте
	createTestOrder(t, r, buyerToken, item.ID)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications?token=" + buyerToken
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil || resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("dial: %v %d", err, resp.StatusCode)
	}
	defer conn.Close()

	var n models.Notification
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&n); err != nil {
		t.Fatalf("pending notification: %v", err)
	}
	if n.Type == "" {
		t.Fatalf("empty notification: %+v", n)
	}

	// sent_at проставляется сразу после записи в сокет
	deadline := time.Now().Add(2 * time.Second)
	for {
		var stored models.Notification
		db.Where("id = ?", n.ID).First(&stored)
		if stored.SentAt != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sent_at not set after delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
