package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func setupOrderTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	orderRepo := repository.NewOrderRepository(db)
	activityLogRepo := repository.NewActivityLogRepository(db)

	svc := service.NewOrderService(orderRepo)
	svc.SetActivityLogRepo(activityLogRepo)
	h := NewOrderHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mes")
	api.GET("/orders", h.ListOrders)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/:id", h.GetOrder)
	api.PUT("/orders/:id", h.UpdateOrder)
	api.POST("/orders/:id/transition", h.TransitionOrderStatus)
	api.GET("/orders/:id/status-history", h.GetStatusHistory)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestOrderCreateDefaults 创建订单时默认进入pending状态
func TestOrderCreateDefaults(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"customer_name": "深圳某客户",
		"total_amount":  1200.50,
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.OrderStatusPending {
		t.Errorf("expected default status pending, got %v", data["status"])
	}
	if data["priority"] != "normal" {
		t.Errorf("expected default priority normal, got %v", data["priority"])
	}
	if data["order_no"] == "" || data["order_no"] == nil {
		t.Error("expected generated order_no")
	}
}

func TestOrderCreateRejectsInvalidInitialStatus(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"customer_name": "客户A",
		"status":        "in_production",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/orders", body, token)
	if w.Code == http.StatusCreated {
		t.Fatalf("creating an order directly in in_production should fail, got %d", w.Code)
	}
}

// TestOrderTransitionFlow 合法流转逐步推进并落历史记录
func TestOrderTransitionFlow(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	order := testutil.SeedOrder(t, env.DB, "order-flow-001", "MO-2026-0001", entity.OrderStatusPending)

	steps := []string{
		entity.OrderStatusConfirmed,
		entity.OrderStatusInProduction,
		entity.OrderStatusQualityCheck,
	}
	for _, target := range steps {
		body := map[string]interface{}{"target_status": target, "note": "流转到 " + target}
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/orders/"+order.ID+"/transition", body, token)
		if w.Code != http.StatusOK {
			t.Fatalf("transition to %s: expected 200, got %d: %s", target, w.Code, w.Body.String())
		}
		resp := testutil.ParseResponse(w)
		data := resp["data"].(map[string]interface{})
		if data["status"] != target {
			t.Fatalf("expected status %s after transition, got %v", target, data["status"])
		}
	}

	// 历史记录追加且顺序一致
	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/orders/"+order.ID+"/status-history", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for status history, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	histories := resp["data"].([]interface{})
	if len(histories) != len(steps) {
		t.Fatalf("expected %d history rows, got %d", len(steps), len(histories))
	}
	first := histories[0].(map[string]interface{})
	if first["from_status"] != entity.OrderStatusPending || first["to_status"] != entity.OrderStatusConfirmed {
		t.Errorf("unexpected first history row: %v", first)
	}
}

// TestOrderInvalidTransitionConflict 非法流转返回40900且状态不变
func TestOrderInvalidTransitionConflict(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	order := testutil.SeedOrder(t, env.DB, "order-inv-001", "MO-2026-0002", entity.OrderStatusPending)

	body := map[string]interface{}{"target_status": entity.OrderStatusShipped}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/orders/"+order.ID+"/transition", body, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40900 {
		t.Errorf("expected business code 40900, got %v", resp["code"])
	}

	// 状态保持不变，历史不落记录
	var got entity.Order
	if err := env.DB.First(&got, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != entity.OrderStatusPending {
		t.Errorf("order status should remain pending, got %s", got.Status)
	}
	var count int64
	env.DB.Model(&entity.OrderStatusHistory{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 0 {
		t.Errorf("no history should be written for a rejected transition, got %d rows", count)
	}
}

func TestOrderTransitionFromTerminalState(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	order := testutil.SeedOrder(t, env.DB, "order-term-001", "MO-2026-0003", entity.OrderStatusCancelled)

	body := map[string]interface{}{"target_status": entity.OrderStatusPending}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/orders/"+order.ID+"/transition", body, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for transition out of cancelled, got %d", w.Code)
	}
}

func TestOrderTransitionNotFound(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{"target_status": entity.OrderStatusConfirmed}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/orders/no-such-order/transition", body, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestOrderListFilterByStatus(t *testing.T) {
	env := setupOrderTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedOrder(t, env.DB, "order-ls-001", "MO-2026-0010", entity.OrderStatusPending)
	testutil.SeedOrder(t, env.DB, "order-ls-002", "MO-2026-0011", entity.OrderStatusConfirmed)
	testutil.SeedOrder(t, env.DB, "order-ls-003", "MO-2026-0012", entity.OrderStatusPending)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/orders?status=pending", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("expected 2 pending orders, got %d", len(items))
	}
}

func TestOrderRequiresAuth(t *testing.T) {
	env := setupOrderTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/orders", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
