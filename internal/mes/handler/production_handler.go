package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// ProductionHandler 生产记录处理器
type ProductionHandler struct {
	svc *service.ProductionService
}

func NewProductionHandler(svc *service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// ListItems 生产项列表
// GET /api/v1/mes/production-items?order_id=xxx&partner_id=xxx&qc_status=xxx
func (h *ProductionHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"order_id":   c.Query("order_id"),
		"partner_id": c.Query("partner_id"),
		"status":     c.Query("status"),
		"qc_status":  c.Query("qc_status"),
		"keyword":    c.Query("keyword"),
	}

	items, total, err := h.svc.ListItems(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取生产项列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetItem 生产项详情
// GET /api/v1/mes/production-items/:id
func (h *ProductionHandler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取生产项失败")
		return
	}
	Success(c, item)
}

// CreateItem 创建生产项
// POST /api/v1/mes/production-items
func (h *ProductionHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err, "创建生产项失败")
		return
	}
	Created(c, item)
}

// UpdateItem 更新生产项
// PUT /api/v1/mes/production-items/:id
func (h *ProductionHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err, "更新生产项失败")
		return
	}
	Success(c, item)
}

// ListPrototypes 打样记录列表
// GET /api/v1/mes/prototypes?order_id=xxx&review_status=xxx
func (h *ProductionHandler) ListPrototypes(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"order_id":      c.Query("order_id"),
		"partner_id":    c.Query("partner_id"),
		"status":        c.Query("status"),
		"review_status": c.Query("review_status"),
	}

	items, total, err := h.svc.ListPrototypes(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取打样列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetPrototype 打样记录详情
// GET /api/v1/mes/prototypes/:id
func (h *ProductionHandler) GetPrototype(c *gin.Context) {
	proto, err := h.svc.GetPrototype(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取打样记录失败")
		return
	}
	Success(c, proto)
}

// CreatePrototype 创建打样记录
// POST /api/v1/mes/prototypes
func (h *ProductionHandler) CreatePrototype(c *gin.Context) {
	var req service.CreatePrototypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	proto, err := h.svc.CreatePrototype(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err, "创建打样记录失败")
		return
	}
	Created(c, proto)
}

// StartNextRound 开启下一轮打样
// POST /api/v1/mes/prototypes/:id/next-round
func (h *ProductionHandler) StartNextRound(c *gin.Context) {
	proto, err := h.svc.StartNextRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "开启下一轮打样失败")
		return
	}
	Created(c, proto)
}
