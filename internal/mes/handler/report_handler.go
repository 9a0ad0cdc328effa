package handler

import (
	"net/url"

	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler 统计报表处理器
type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// GetOrderStatusStats 订单状态分布
// GET /api/v1/mes/reports/order-status
func (h *ReportHandler) GetOrderStatusStats(c *gin.Context) {
	stats, err := h.svc.GetOrderStatusStats(c.Request.Context())
	if err != nil {
		InternalError(c, "获取订单统计失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// GetQCSummary 质检汇总
// GET /api/v1/mes/reports/qc-summary
func (h *ReportHandler) GetQCSummary(c *gin.Context) {
	summary, err := h.svc.GetQCSummary(c.Request.Context())
	if err != nil {
		InternalError(c, "获取质检汇总失败: "+err.Error())
		return
	}
	Success(c, summary)
}

// GetPartnerQCStats 工厂质检表现
// GET /api/v1/mes/reports/partner-qc
func (h *ReportHandler) GetPartnerQCStats(c *gin.Context) {
	stats, err := h.svc.GetPartnerQCStats(c.Request.Context())
	if err != nil {
		InternalError(c, "获取工厂质检统计失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// ExportInspections 导出检验记录
// GET /api/v1/mes/reports/inspections/export?status=failed
func (h *ReportHandler) ExportInspections(c *gin.Context) {
	f, filename, err := h.svc.ExportInspections(c.Request.Context(), c.Query("status"))
	if err != nil {
		InternalError(c, "导出检验记录失败: "+err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
