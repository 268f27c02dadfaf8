package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusmarket/internal/models"
)

func TestCreateAndListItems(t *testing.T) {
	_, r := setupTest(t)
	token := registerUser(t, r, "item_owner1")

	body := `{"name":"Desk chair","description":"barely used","category":"dorm","price":"15.00"}`
	w := doJSON(t, r, "POST", "/client/items", token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("create item status %d: %s", w.Code, w.Body.String())
	}
	var item models.Item
	decodeData(t, w, &item)
	if item.Status != models.ItemStatusAvailable {
		t.Fatalf("new item status %s", item.Status)
	}

	w = doJSON(t, r, "GET", "/items?category=dorm", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	var items []models.Item
	decodeData(t, w, &items)
	found := false
	for _, it := range items {
		if it.ID == item.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("created item not in listing")
	}

	w = doJSON(t, r, "GET", "/items/"+item.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d", w.Code)
	}
}

func TestCreateItemValidation(t *testing.T) {
	_, r := setupTest(t)
	token := registerUser(t, r, "item_owner2")

	w := doJSON(t, r, "POST", "/client/items", token, `{"name":"Free stuff","price":"0"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero price status %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/client/items", token, `{"price":"5.00"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status %d", w.Code)
	}
}

func TestUpdateItemGuards(t *testing.T) {
	db, r := setupTest(t)
	ownerToken := registerUser(t, r, "item_owner3")
	strangerToken := registerUser(t, r, "item_stranger3")
	owner := userByName(t, db, "item_owner3")
	item := createTestItem(t, db, owner.ID, "Old phone", "40.00")

	w := doJSON(t, r, "PUT", "/client/items/"+item.ID, strangerToken, `{"price":"1.00"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger update status %d", w.Code)
	}

	w = doJSON(t, r, "PUT", "/client/items/"+item.ID, ownerToken, `{"price":"35.00","description":"small scratch"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("owner update status %d: %s", w.Code, w.Body.String())
	}
	var updated models.Item
	decodeData(t, w, &updated)
	if updated.Price.String() != "35" && updated.Price.String() != "35.00" {
		t.Fatalf("price not updated: %s", updated.Price)
	}

	// снятие с продажи
	w = doJSON(t, r, "PUT", "/client/items/"+item.ID, ownerToken, `{"delist":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("delist status %d", w.Code)
	}
	decodeData(t, w, &updated)
	if updated.Status != models.ItemStatusDelisted {
		t.Fatalf("status after delist %s", updated.Status)
	}

	// зарезервированный товар снять нельзя
	reserved := createTestItem(t, db, owner.ID, "Kettle", "10.00")
	db.Model(&models.Item{}).Where("id = ?", reserved.ID).Update("status", models.ItemStatusReserved)
	w = doJSON(t, r, "PUT", "/client/items/"+reserved.ID, ownerToken, `{"delist":true}`)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("delist reserved status %d", w.Code)
	}
}

func TestUploadItemImage(t *testing.T) {
	db, r := setupTest(t)
	token := registerUser(t, r, "item_owner4")
	owner := userByName(t, db, "item_owner4")
	item := createTestItem(t, db, owner.ID, "Poster", "3.00")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "poster.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("png-bytes"))
	mw.Close()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/client/items/"+item.ID+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", w.Code, w.Body.String())
	}
	var updated models.Item
	decodeData(t, w, &updated)
	var urls []string
	if err := json.Unmarshal(updated.Images, &urls); err != nil {
		t.Fatalf("images json: %v", err)
	}
	if len(urls) != 1 || urls[0] == "" {
		t.Fatalf("unexpected images %v", urls)
	}
}
