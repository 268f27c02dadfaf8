package handlers

import (
	"net/http"
	"testing"

	"campusmarket/internal/models"
)

func TestOrderChatMessages(t *testing.T) {
	db, r := setupTest(t)
	sellerToken := registerUser(t, r, "chat_seller1")
	buyerToken := registerUser(t, r, "chat_buyer1")
	strangerToken := registerUser(t, r, "chat_stranger1")
	seller := userByName(t, db, "chat_seller1")
	item := createTestItem(t, db, seller.ID, "Backpack", "14.00")
	full := createTestOrder(t, r, buyerToken, item.ID)

	w := doJSON(t, r, "POST", "/orders/"+full.ID+"/messages", buyerToken, `{"content":"is it still available?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("send status %d: %s", w.Code, w.Body.String())
	}
	var msg models.OrderMessage
	decodeData(t, w, &msg)
	if msg.Type != models.MessageTypeText || msg.ReadAt != nil {
		t.Fatalf("new message: %s %v", msg.Type, msg.ReadAt)
	}

	// посторонний не видит чат и не пишет в него
	w = doJSON(t, r, "GET", "/orders/"+full.ID+"/messages", strangerToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger list status %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/orders/"+full.ID+"/messages", strangerToken, `{"content":"hi"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger send status %d", w.Code)
	}

	doJSON(t, r, "POST", "/orders/"+full.ID+"/messages", sellerToken, `{"content":"yes, come by"}`)

	w = doJSON(t, r, "GET", "/orders/"+full.ID+"/messages", sellerToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	var msgs []models.OrderMessage
	decodeData(t, w, &msgs)
	if len(msgs) != 2 {
		t.Fatalf("messages %d", len(msgs))
	}
	if msgs[0].SenderName == "" {
		t.Fatalf("sender name not filled")
	}

	// своё сообщение прочитать нельзя, чужое — можно
	w = doJSON(t, r, "PATCH", "/orders/"+full.ID+"/messages/"+msg.ID+"/read", buyerToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("read own status %d", w.Code)
	}
	w = doJSON(t, r, "PATCH", "/orders/"+full.ID+"/messages/"+msg.ID+"/read", sellerToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("read status %d", w.Code)
	}
	var read models.OrderMessage
	decodeData(t, w, &read)
	if read.ReadAt == nil {
		t.Fatalf("read_at not set")
	}
}

func TestSendMessageValidation(t *testing.T) {
	db, r := setupTest(t)
	registerUser(t, r, "chat_seller2")
	buyerToken := registerUser(t, r, "chat_buyer2")
	seller := userByName(t, db, "chat_seller2")
	item := createTestItem(t, db, seller.ID, "Tent", "33.00")
	full := createTestOrder(t, r, buyerToken, item.ID)

	w := doJSON(t, r, "POST", "/orders/"+full.ID+"/messages", buyerToken, `{"content":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty content status %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/orders/missing/messages", buyerToken, `{"content":"hi"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing order status %d", w.Code)
	}
}
