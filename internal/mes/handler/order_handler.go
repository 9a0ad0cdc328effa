package handler

import (
	"strings"

	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// ListOrders 订单列表
// GET /api/v1/mes/orders?status=xxx&priority=xxx&customer_id=xxx&partner_id=xxx&keyword=xxx
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":      c.Query("status"),
		"priority":    c.Query("priority"),
		"customer_id": c.Query("customer_id"),
		"partner_id":  c.Query("partner_id"),
		"keyword":     c.Query("keyword"),
	}

	items, total, err := h.svc.ListOrders(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetOrder 订单详情
// GET /api/v1/mes/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取订单失败")
		return
	}
	Success(c, order)
}

// CreateOrder 创建订单
// POST /api/v1/mes/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err, "创建订单失败")
		return
	}
	Created(c, order)
}

// UpdateOrder 更新订单基础信息
// PUT /api/v1/mes/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err, "更新订单失败")
		return
	}
	Success(c, order)
}

// TransitionRequest 状态流转请求
type TransitionRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
	Note         string `json:"note"`
}

// TransitionOrderStatus 订单状态流转
// POST /api/v1/mes/orders/:id/transition
func (h *OrderHandler) TransitionOrderStatus(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.TransitionOrderStatus(c.Request.Context(), c.Param("id"), req.TargetStatus, req.Note, GetUserID(c))
	if err != nil {
		HandleError(c, err, "订单状态流转失败")
		return
	}
	Success(c, order)
}

// GetStatusHistory 订单状态变更记录
// GET /api/v1/mes/orders/:id/status-history
func (h *OrderHandler) GetStatusHistory(c *gin.Context) {
	history, err := h.svc.GetStatusHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取状态记录失败")
		return
	}
	Success(c, history)
}

// ImportOrders 从CSV导入订单
// POST /api/v1/mes/orders/import?encoding=gbk
func (h *OrderHandler) ImportOrders(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "没有上传文件")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	gbk := strings.EqualFold(c.Query("encoding"), "gbk")
	result, err := h.svc.ImportOrdersCSV(c.Request.Context(), GetUserID(c), src, gbk)
	if err != nil {
		InternalError(c, "导入订单失败: "+err.Error())
		return
	}
	Success(c, result)
}
