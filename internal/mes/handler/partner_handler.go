package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// PartnerHandler 合作伙伴处理器
type PartnerHandler struct {
	svc *service.PartnerService
}

func NewPartnerHandler(svc *service.PartnerService) *PartnerHandler {
	return &PartnerHandler{svc: svc}
}

// ListPartners 伙伴列表
// GET /api/v1/mes/partners?type=factory&status=active&keyword=xxx
func (h *PartnerHandler) ListPartners(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"type":    c.Query("type"),
		"status":  c.Query("status"),
		"region":  c.Query("region"),
		"keyword": c.Query("keyword"),
	}

	items, total, err := h.svc.ListPartners(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取伙伴列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetPartner 伙伴详情
// GET /api/v1/mes/partners/:id
func (h *PartnerHandler) GetPartner(c *gin.Context) {
	partner, err := h.svc.GetPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取伙伴失败")
		return
	}
	Success(c, partner)
}

// CreatePartner 创建伙伴
// POST /api/v1/mes/partners
func (h *PartnerHandler) CreatePartner(c *gin.Context) {
	var req service.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	partner, err := h.svc.CreatePartner(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err, "创建伙伴失败")
		return
	}
	Created(c, partner)
}

// UpdatePartner 更新伙伴
// PUT /api/v1/mes/partners/:id
func (h *PartnerHandler) UpdatePartner(c *gin.Context) {
	var req service.UpdatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	partner, err := h.svc.UpdatePartner(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err, "更新伙伴失败")
		return
	}
	Success(c, partner)
}

// DeletePartner 删除伙伴
// DELETE /api/v1/mes/partners/:id
func (h *PartnerHandler) DeletePartner(c *gin.Context) {
	if err := h.svc.DeletePartner(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err, "删除伙伴失败")
		return
	}
	Success(c, nil)
}
