package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AutoDreams/AutoDreams/internal/common/config"
	"github.com/AutoDreams/AutoDreams/internal/common/db"
	"github.com/AutoDreams/AutoDreams/internal/common/logger"
	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/AutoDreams/AutoDreams/internal/ledger"
	"github.com/AutoDreams/AutoDreams/internal/review"
	"github.com/AutoDreams/AutoDreams/internal/seed"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Name: "dealership-test"},
		Auth: config.AuthConfig{
			Enabled:   true,
			JWTSecret: "test-secret",
			Issuer:    "autodreams",
			Audience:  "autodreams-app",
			TokenTTL:  1,
		},
	}
}

func testHandler(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	gdb, err := db.NewSQLiteInMemory()
	if err != nil {
		t.Fatalf("NewSQLiteInMemory: %v", err)
	}
	err = gdb.AutoMigrate(
		&credential.User{}, &credential.Client{}, &credential.Employee{},
		&inventory.Vehicle{}, &ledger.Order{}, &review.Review{},
	)
	if err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	log, err := logger.New(logger.Options{Level: "error"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return New(testConfig(), log, gdb).Router(), gdb
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, h http.Handler, loginName, password string) (token, clientID string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "",
		map[string]string{"login": loginName, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", loginName, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token    string `json:"token"`
		ClientID string `json:"client_id"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token, resp.ClientID
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := testHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	h, _ := testHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/vehicles", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/vehicles", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestRoleGate(t *testing.T) {
	h, gdb := testHandler(t)
	if err := seed.Run(context.Background(), gdb); err != nil {
		t.Fatalf("seed.Run: %v", err)
	}

	clientToken, _ := login(t, h, "client1", "123")
	rec := doJSON(t, h, http.MethodPost, "/api/vehicles", clientToken, map[string]interface{}{
		"brand": "Lada", "model": "Vesta", "year": 2024, "vin": "XTA00000000000001", "price": 1,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client on staff route, got %d", rec.Code)
	}

	adminToken, _ := login(t, h, "admin", "admin")
	rec = doJSON(t, h, http.MethodGet, "/api/admin/stats", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for employee on stats, got %d body %s", rec.Code, rec.Body.String())
	}
}

// 完整购车旅程：注册 -> 登录 -> 上架 -> 下单 -> 台账 -> 评价。
func TestShowroomJourney(t *testing.T) {
	h, gdb := testHandler(t)
	if err := seed.Run(context.Background(), gdb); err != nil {
		t.Fatalf("seed.Run: %v", err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
		"first_name": "Alice", "last_name": "Walker",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}
	// 重复注册同名：冲突
	rec = doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", rec.Code)
	}

	aliceToken, aliceClientID := login(t, h, "alice", "secret123")
	if aliceClientID == "" {
		t.Fatal("expected client profile for alice")
	}

	adminToken, _ := login(t, h, "admin", "admin")
	rec = doJSON(t, h, http.MethodPost, "/api/vehicles", adminToken, map[string]interface{}{
		"brand": "Toyota", "model": "Camry", "year": 2024,
		"vin": "JTNBE46KX83012345", "color": "White", "price": 3_300_000_00,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add vehicle: status %d body %s", rec.Code, rec.Body.String())
	}
	var camry struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &camry)

	rec = doJSON(t, h, http.MethodPost, "/api/orders", aliceToken,
		map[string]interface{}{"vehicle_id": camry.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("place order: status %d body %s", rec.Code, rec.Body.String())
	}
	var order struct {
		ID         string `json:"id"`
		FinalPrice int64  `json:"final_price"`
		Status     string `json:"status"`
	}
	decodeBody(t, rec, &order)
	if order.FinalPrice != 3_300_000_00 {
		t.Fatalf("expected list price as final price, got %d", order.FinalPrice)
	}
	if order.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed order, got %s", order.Status)
	}

	// 车辆翻为已售出，二次下单冲突
	rec = doJSON(t, h, http.MethodGet, "/api/vehicles/"+camry.ID, aliceToken, nil)
	var v struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &v)
	if v.Status != string(inventory.StatusSold) {
		t.Fatalf("expected sold vehicle, got %s", v.Status)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/orders", aliceToken,
		map[string]interface{}{"vehicle_id": camry.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second order: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/orders", aliceToken, nil)
	var myOrders []struct {
		OrderID string `json:"order_id"`
		Brand   string `json:"brand"`
		Model   string `json:"model"`
	}
	decodeBody(t, rec, &myOrders)
	if len(myOrders) != 1 || myOrders[0].Brand != "Toyota" || myOrders[0].Model != "Camry" {
		t.Fatalf("unexpected own orders: %+v", myOrders)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/reviews", aliceToken, map[string]interface{}{
		"order_id": order.ID, "rating": 5, "comment": "great car",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add review: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/api/reviews", aliceToken, map[string]interface{}{
		"order_id": order.ID, "rating": 4,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate review: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/reviews", aliceToken, map[string]interface{}{
		"order_id": order.ID, "rating": 9,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad rating: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/admin/orders", adminToken, nil)
	decodeBody(t, rec, &myOrders)
	if len(myOrders) != 1 {
		t.Fatalf("expected 1 order in admin view, got %d", len(myOrders))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/admin/stats", adminToken, nil)
	var snap struct {
		SoldVehicles int64 `json:"sold_vehicles"`
		TotalOrders  int64 `json:"total_orders"`
		TotalRevenue int64 `json:"total_revenue"`
	}
	decodeBody(t, rec, &snap)
	if snap.SoldVehicles != 1 || snap.TotalOrders != 1 || snap.TotalRevenue != 3_300_000_00 {
		t.Fatalf("unexpected stats: %+v", snap)
	}
}

func TestVehicleAdminFlows(t *testing.T) {
	h, gdb := testHandler(t)
	if err := seed.Run(context.Background(), gdb); err != nil {
		t.Fatalf("seed.Run: %v", err)
	}
	adminToken, _ := login(t, h, "admin", "admin")

	// 超长 VIN：422
	rec := doJSON(t, h, http.MethodPost, "/api/vehicles", adminToken, map[string]interface{}{
		"brand": "Lada", "model": "Vesta", "year": 2024,
		"vin": "XTA000000000000018", "price": 1_200_000_00,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("long vin: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/vehicles/bulk", adminToken,
		map[string]interface{}{"brand": "Lada", "model": "Granta", "quantity": 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk add: status %d body %s", rec.Code, rec.Body.String())
	}
	var bulk struct {
		Inserted int `json:"inserted"`
	}
	decodeBody(t, rec, &bulk)
	if bulk.Inserted != 3 {
		t.Fatalf("expected 3 inserted, got %d", bulk.Inserted)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/vehicles/no-such-id", adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: status %d", rec.Code)
	}
}
