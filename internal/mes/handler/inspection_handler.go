package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// InspectionHandler 质检检验处理器
type InspectionHandler struct {
	svc *service.InspectionService
}

func NewInspectionHandler(svc *service.InspectionService) *InspectionHandler {
	return &InspectionHandler{svc: svc}
}

// ListInspections 检验列表
// GET /api/v1/mes/inspections?status=xxx&production_item_id=xxx&template_id=xxx
func (h *InspectionHandler) ListInspections(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":                  c.Query("status"),
		"production_item_id":      c.Query("production_item_id"),
		"prototype_production_id": c.Query("prototype_production_id"),
		"template_id":             c.Query("template_id"),
		"station_id":              c.Query("station_id"),
	}

	items, total, err := h.svc.ListInspections(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取检验列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetInspection 检验详情
// GET /api/v1/mes/inspections/:id
func (h *InspectionHandler) GetInspection(c *gin.Context) {
	inspection, err := h.svc.GetInspection(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取检验失败")
		return
	}
	Success(c, inspection)
}

// StartInspection 发起检验
// POST /api/v1/mes/inspections
// 重复幂等键返回200和已存在的检验，新建返回201
func (h *InspectionHandler) StartInspection(c *gin.Context) {
	var req service.StartInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, created, err := h.svc.StartInspection(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err, "发起检验失败")
		return
	}
	if created {
		Created(c, inspection)
		return
	}
	Success(c, inspection)
}

// SubmitCheckpointResult 提交检查点结果
// POST /api/v1/mes/inspections/:id/checkpoint-results
func (h *InspectionHandler) SubmitCheckpointResult(c *gin.Context) {
	var req service.SubmitCheckpointResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.SubmitCheckpointResult(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err, "提交检查点结果失败")
		return
	}
	Success(c, result)
}

// BatchPassSection 整章通过
// POST /api/v1/mes/inspections/:id/sections/:sectionId/batch-pass
func (h *InspectionHandler) BatchPassSection(c *gin.Context) {
	count, err := h.svc.BatchPassSection(c.Request.Context(), c.Param("id"), c.Param("sectionId"))
	if err != nil {
		HandleError(c, err, "整章通过失败")
		return
	}
	Success(c, gin.H{"passed_checkpoints": count})
}

// CompleteSection 标记章节完成
// POST /api/v1/mes/inspections/:id/sections/:sectionId/complete
func (h *InspectionHandler) CompleteSection(c *gin.Context) {
	var req service.CompleteSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.CompleteSection(c.Request.Context(), c.Param("id"), c.Param("sectionId"), req.Status)
	if err != nil {
		HandleError(c, err, "标记章节完成失败")
		return
	}
	Success(c, result)
}

// GetProgress 检验完成度
// GET /api/v1/mes/inspections/:id/progress
func (h *InspectionHandler) GetProgress(c *gin.Context) {
	progress, err := h.svc.GetInspectionProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取完成度失败")
		return
	}
	Success(c, progress)
}

// ValidateCanPass 预检能否判定通过
// GET /api/v1/mes/inspections/:id/validate-can-pass
func (h *InspectionHandler) ValidateCanPass(c *gin.Context) {
	result, err := h.svc.ValidateCanPass(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "预检失败")
		return
	}
	Success(c, result)
}

// SubmitInspection 最终判定
// POST /api/v1/mes/inspections/:id/submit
func (h *InspectionHandler) SubmitInspection(c *gin.Context) {
	var req service.SubmitInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.SubmitInspection(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err, "提交检验判定失败")
		return
	}
	Success(c, inspection)
}

// GetReworkInspection 返工参考：主体最近一次失败检验及问题清单
// GET /api/v1/mes/inspections/rework?production_item_id=xxx 或 prototype_production_id=xxx
func (h *InspectionHandler) GetReworkInspection(c *gin.Context) {
	var itemID, protoID *string
	if v := c.Query("production_item_id"); v != "" {
		itemID = &v
	}
	if v := c.Query("prototype_production_id"); v != "" {
		protoID = &v
	}

	view, err := h.svc.GetReworkInspection(c.Request.Context(), itemID, protoID)
	if err != nil {
		HandleError(c, err, "获取返工检验失败")
		return
	}
	Success(c, view)
}

// GetSectionResults 检验章节跟踪行
// GET /api/v1/mes/inspections/:id/section-results
func (h *InspectionHandler) GetSectionResults(c *gin.Context) {
	results, err := h.svc.GetSectionResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取章节结果失败")
		return
	}
	Success(c, results)
}

// GetCheckpointResults 检验检查点结果
// GET /api/v1/mes/inspections/:id/checkpoint-results
func (h *InspectionHandler) GetCheckpointResults(c *gin.Context) {
	results, err := h.svc.GetCheckpointResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取检查点结果失败")
		return
	}
	Success(c, results)
}

// UploadPhoto 上传检验照片
// POST /api/v1/mes/inspections/:id/photos (multipart, file + 可选 checkpoint_id)
func (h *InspectionHandler) UploadPhoto(c *gin.Context) {
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

	var checkpointID *string
	if v := c.PostForm("checkpoint_id"); v != "" {
		checkpointID = &v
	}

	photo, err := h.svc.UploadPhoto(c.Request.Context(), c.Param("id"), checkpointID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, src, GetUserID(c))
	if err != nil {
		HandleError(c, err, "上传照片失败")
		return
	}
	Created(c, photo)
}

// ListPhotos 检验照片列表
// GET /api/v1/mes/inspections/:id/photos
func (h *InspectionHandler) ListPhotos(c *gin.Context) {
	photos, err := h.svc.GetPhotos(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "获取照片列表失败")
		return
	}
	Success(c, photos)
}
