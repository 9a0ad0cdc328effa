package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func setupOrderService(t *testing.T) (*OrderService, *testutil.TestEnv) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewOrderService(repository.NewOrderRepository(db))
	return svc, &testutil.TestEnv{DB: db, T: t}
}

func TestImportOrdersCSV(t *testing.T) {
	svc, env := setupOrderService(t)

	csv := "客户名称,优先级,金额,备注\n" +
		"深圳创新科技,high,15000.50,首批订单\n" +
		"\n" +
		"杭州智造,,,\n" +
		",normal,100,缺客户名\n"

	result, err := svc.ImportOrdersCSV(context.Background(), "test-user", strings.NewReader(csv), false)
	if err != nil {
		t.Fatalf("ImportOrdersCSV: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("expected 2 imported, got %d", result.Imported)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error line, got %v", result.Errors)
	}

	var count int64
	env.DB.Model(&entity.Order{}).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 orders in db, got %d", count)
	}

	var order entity.Order
	if err := env.DB.First(&order, "customer_name = ?", "深圳创新科技").Error; err != nil {
		t.Fatalf("imported order not found: %v", err)
	}
	if order.Priority != "high" || order.TotalAmount != 15000.50 || order.Notes != "首批订单" {
		t.Errorf("unexpected imported order: %+v", order)
	}
	if order.Status != entity.OrderStatusPending {
		t.Errorf("imported order should be pending, got %s", order.Status)
	}
}

// 工厂侧导出的CSV常见GBK编码
func TestImportOrdersCSVGBK(t *testing.T) {
	svc, env := setupOrderService(t)

	utf8CSV := "客户名称,优先级\n广州精密制造,urgent\n"
	gbkBytes, _, err := transform.String(simplifiedchinese.GBK.NewEncoder(), utf8CSV)
	if err != nil {
		t.Fatalf("encode GBK fixture: %v", err)
	}

	result, err := svc.ImportOrdersCSV(context.Background(), "test-user", strings.NewReader(gbkBytes), true)
	if err != nil {
		t.Fatalf("ImportOrdersCSV gbk: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("expected 1 imported, got %d (errors: %v)", result.Imported, result.Errors)
	}

	var order entity.Order
	if err := env.DB.First(&order, "priority = ?", "urgent").Error; err != nil {
		t.Fatalf("imported order not found: %v", err)
	}
	if order.CustomerName != "广州精密制造" {
		t.Errorf("GBK decode failed, customer_name = %q", order.CustomerName)
	}
}
