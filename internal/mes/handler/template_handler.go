package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 检验模板处理器
type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// ListTemplates 模板列表
// GET /api/v1/mes/qc-templates?category=xxx&status=xxx&keyword=xxx
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"category": c.Query("category"),
		"status":   c.Query("status"),
		"keyword":  c.Query("keyword"),
	}

	items, total, err := h.svc.ListTemplates(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取模板列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetTemplate 模板详情（含全部章节和检查点）
// GET /api/v1/mes/qc-templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取模板失败")
		return
	}
	Success(c, tpl)
}

// RenderRequest 条件渲染请求，metadata为检验主体的物料/工艺元数据
type RenderRequest struct {
	Metadata entity.JSONB `json:"metadata"`
}

// RenderTemplate 按主体元数据渲染模板，过滤条件不满足的章节与检查点
// POST /api/v1/mes/qc-templates/:id/render
func (h *TemplateHandler) RenderTemplate(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.RenderTemplate(c.Request.Context(), c.Param("id"), req.Metadata)
	if err != nil {
		HandleError(c, err, "渲染模板失败")
		return
	}
	Success(c, tpl)
}

// CreateTemplate 创建模板
// POST /api/v1/mes/qc-templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.CreateTemplate(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err, "创建模板失败")
		return
	}
	Created(c, tpl)
}

// UpdateTemplate 更新模板基础信息
// PUT /api/v1/mes/qc-templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.UpdateTemplate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err, "更新模板失败")
		return
	}
	Success(c, tpl)
}

// AddSection 追加章节
// POST /api/v1/mes/qc-templates/:id/sections
func (h *TemplateHandler) AddSection(c *gin.Context) {
	var req service.AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	section, err := h.svc.AddSection(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err, "添加章节失败")
		return
	}
	Created(c, section)
}

// AddCheckpoint 追加检查点
// POST /api/v1/mes/qc-template-sections/:sectionId/checkpoints
func (h *TemplateHandler) AddCheckpoint(c *gin.Context) {
	var req service.AddCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cp, err := h.svc.AddCheckpoint(c.Request.Context(), c.Param("sectionId"), &req)
	if err != nil {
		HandleError(c, err, "添加检查点失败")
		return
	}
	Created(c, cp)
}
