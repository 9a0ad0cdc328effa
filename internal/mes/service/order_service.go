package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// OrderService 订单服务
type OrderService struct {
	repo            *repository.OrderRepository
	activityLogRepo *repository.ActivityLogRepository
}

func NewOrderService(repo *repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// SetActivityLogRepo 注入操作日志仓库
func (s *OrderService) SetActivityLogRepo(repo *repository.ActivityLogRepository) {
	s.activityLogRepo = repo
}

// ListOrders 获取订单列表
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.repo.FindByID(ctx, id)
}

// GetStatusHistory 获取订单状态变更记录
func (s *OrderService) GetStatusHistory(ctx context.Context, orderID string) ([]entity.OrderStatusHistory, error) {
	if _, err := s.repo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.FindStatusHistory(ctx, orderID)
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	CustomerID   *string  `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	PartnerID    *string  `json:"partner_id"`
	Status       string   `json:"status"` // draft 或 pending，默认 pending
	Priority     string   `json:"priority"`
	TotalAmount  float64  `json:"total_amount"`
	Currency     string   `json:"currency"`
	DueDate      *time.Time `json:"due_date"`
	Notes        string   `json:"notes"`
}

// CreateOrder 创建订单
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*entity.Order, error) {
	status := req.Status
	if status == "" {
		status = entity.OrderStatusPending
	}
	if status != entity.OrderStatusDraft && status != entity.OrderStatusPending {
		return nil, fmt.Errorf("订单初始状态只能是 draft 或 pending")
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	order := &entity.Order{
		ID:           uuid.New().String()[:32],
		OrderNo:      code,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		PartnerID:    req.PartnerID,
		Status:       status,
		Priority:     priority,
		TotalAmount:  req.TotalAmount,
		Currency:     currency,
		DueDate:      req.DueDate,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "order", order.ID, order.OrderNo,
			"create", "", order.Status, fmt.Sprintf("创建订单: %s", order.OrderNo), userID, "")
	}

	return order, nil
}

// UpdateOrderRequest 更新订单请求（状态不在此处修改）
type UpdateOrderRequest struct {
	CustomerName  *string    `json:"customer_name"`
	PartnerID     *string    `json:"partner_id"`
	Priority      *string    `json:"priority"`
	PaymentStatus *string    `json:"payment_status"`
	TotalAmount   *float64   `json:"total_amount"`
	DueDate       *time.Time `json:"due_date"`
	Notes         *string    `json:"notes"`
}

// UpdateOrder 更新订单基础信息
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req *UpdateOrderRequest) (*entity.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CustomerName != nil {
		order.CustomerName = *req.CustomerName
	}
	if req.PartnerID != nil {
		order.PartnerID = req.PartnerID
	}
	if req.Priority != nil {
		order.Priority = *req.Priority
	}
	if req.PaymentStatus != nil {
		order.PaymentStatus = *req.PaymentStatus
	}
	if req.TotalAmount != nil {
		order.TotalAmount = *req.TotalAmount
	}
	if req.DueDate != nil {
		order.DueDate = req.DueDate
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// TransitionOrderStatus 订单状态流转
// 只允许 entity.ValidOrderTransitions 中声明的边，每次流转追加一条状态记录
func (s *OrderService) TransitionOrderStatus(ctx context.Context, id, targetStatus, note, userID string) (*entity.Order, error) {
	if !entity.IsValidOrderStatus(targetStatus) {
		return nil, fmt.Errorf("未知的订单状态: %s", targetStatus)
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := entity.ValidOrderTransitions[order.Status]
	valid := false
	for _, st := range allowed {
		if st == targetStatus {
			valid = true
			break
		}
	}
	if !valid {
		return nil, &InvalidTransitionError{From: order.Status, To: targetStatus}
	}

	fromStatus := order.Status
	order.Status = targetStatus
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	history := &entity.OrderStatusHistory{
		ID:         uuid.New().String()[:32],
		OrderID:    order.ID,
		FromStatus: fromStatus,
		ToStatus:   targetStatus,
		ChangedBy:  userID,
		Note:       note,
	}
	if err := s.repo.AppendStatusHistory(ctx, history); err != nil {
		return nil, err
	}

	if s.activityLogRepo != nil {
		content := fmt.Sprintf("订单状态变更: %s → %s", fromStatus, targetStatus)
		s.activityLogRepo.LogActivity(ctx, "order", order.ID, order.OrderNo,
			"status_change", fromStatus, targetStatus, content, userID, "")
	}

	sse.PublishOrderUpdate(order.ID, fromStatus, targetStatus)

	return order, nil
}

// ImportResult 订单导入结果
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportOrdersCSV 从CSV导入订单
// 工厂侧导出的CSV多为GBK编码，统一转成UTF-8再解析
// 列: 客户名称,优先级,金额,备注
func (s *OrderService) ImportOrdersCSV(ctx context.Context, userID string, reader io.Reader, gbk bool) (*ImportResult, error) {
	if gbk {
		reader = transform.NewReader(reader, simplifiedchinese.GBK.NewDecoder())
	}

	result := &ImportResult{}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		// 跳过表头
		if lineNo == 1 && strings.Contains(line, "客户") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 1 || strings.TrimSpace(fields[0]) == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 缺少客户名称", lineNo))
			continue
		}

		req := &CreateOrderRequest{
			CustomerName: strings.TrimSpace(fields[0]),
		}
		if len(fields) > 1 {
			req.Priority = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			if amount, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err == nil {
				req.TotalAmount = amount
			}
		}
		if len(fields) > 3 {
			req.Notes = strings.TrimSpace(fields[3])
		}

		if _, err := s.CreateOrder(ctx, userID, req); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", lineNo, err))
			continue
		}
		result.Imported++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取CSV失败: %w", err)
	}

	return result, nil
}
