package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportService 统计报表服务
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// StatusCount 按状态聚合的计数
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// GetOrderStatusStats 订单状态分布
func (s *ReportService) GetOrderStatusStats(ctx context.Context) ([]StatusCount, error) {
	var stats []StatusCount
	err := s.db.WithContext(ctx).
		Raw(`SELECT status, COUNT(*) as count
			FROM mes_orders
			GROUP BY status
			ORDER BY count DESC`).
		Scan(&stats).Error
	return stats, err
}

// QCSummary 质检汇总
type QCSummary struct {
	TotalInspections  int64   `json:"total_inspections"`
	InProgress        int64   `json:"in_progress"`
	Passed            int64   `json:"passed"`
	Failed            int64   `json:"failed"`
	PassRate          float64 `json:"pass_rate"`
	OpenCriticalCount int64   `json:"open_critical_count"`
}

// GetQCSummary 质检汇总：检验量、通过率、未关闭致命问题数
func (s *ReportService) GetQCSummary(ctx context.Context) (*QCSummary, error) {
	summary := &QCSummary{}

	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN status = 'in_progress' THEN 1 END) as in_progress,
			COUNT(CASE WHEN status = 'passed' THEN 1 END) as passed,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed
		FROM mes_qc_inspections
	`).Row()
	if err := row.Scan(&summary.TotalInspections, &summary.InProgress, &summary.Passed, &summary.Failed); err != nil {
		return summary, nil // 没有数据时返回空汇总
	}

	decided := summary.Passed + summary.Failed
	if decided > 0 {
		summary.PassRate = float64(summary.Passed) / float64(decided) * 100
	}

	s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM mes_qc_checkpoint_results r
		JOIN mes_qc_inspections i ON i.id = r.inspection_id
		WHERE r.status = 'issue' AND r.severity = 'critical' AND i.status = 'in_progress'
	`).Scan(&summary.OpenCriticalCount)

	return summary, nil
}

// PartnerQCStat 按伙伴聚合的质检表现
type PartnerQCStat struct {
	PartnerID   string  `json:"partner_id"`
	PartnerName string  `json:"partner_name"`
	Total       int64   `json:"total"`
	Passed      int64   `json:"passed"`
	Failed      int64   `json:"failed"`
	PassRate    float64 `json:"pass_rate"`
}

// GetPartnerQCStats 按工厂统计质检通过率（基于生产项检验）
func (s *ReportService) GetPartnerQCStats(ctx context.Context) ([]PartnerQCStat, error) {
	var stats []PartnerQCStat
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			p.id as partner_id,
			p.name as partner_name,
			COUNT(i.id) as total,
			COUNT(CASE WHEN i.status = 'passed' THEN 1 END) as passed,
			COUNT(CASE WHEN i.status = 'failed' THEN 1 END) as failed
		FROM mes_partners p
		JOIN mes_production_items pi ON pi.partner_id = p.id
		JOIN mes_qc_inspections i ON i.production_item_id = pi.id
		WHERE p.type = 'factory'
		GROUP BY p.id, p.name
		ORDER BY total DESC
	`).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	for idx := range stats {
		decided := stats[idx].Passed + stats[idx].Failed
		if decided > 0 {
			stats[idx].PassRate = float64(stats[idx].Passed) / float64(decided) * 100
		}
	}
	return stats, nil
}

// inspectionExportRow 检验导出行
type inspectionExportRow struct {
	InspectionCode string
	SubjectCode    string
	TemplateName   string
	Status         string
	StationID      string
	InspectorNotes string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

var inspectionExportHeaders = []string{"检验编码", "检验对象", "模板", "结果", "工位", "检验员备注", "发起时间", "判定时间"}

// ExportInspections 导出检验记录为Excel
func (s *ReportService) ExportInspections(ctx context.Context, status string) (*excelize.File, string, error) {
	query := s.db.WithContext(ctx).Raw(`
		SELECT
			i.inspection_code,
			COALESCE(pi.item_code, pp.prototype_code, '') as subject_code,
			t.name as template_name,
			i.status,
			i.station_id,
			i.inspector_notes,
			i.created_at,
			i.completed_at
		FROM mes_qc_inspections i
		LEFT JOIN mes_production_items pi ON pi.id = i.production_item_id
		LEFT JOIN mes_prototype_productions pp ON pp.id = i.prototype_production_id
		LEFT JOIN mes_qc_templates t ON t.id = i.template_id
		WHERE (? = '' OR i.status = ?)
		ORDER BY i.created_at DESC
	`, status, status)

	var rows []inspectionExportRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("查询检验记录失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "检验记录"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range inspectionExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, item := range rows {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.InspectionCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.SubjectCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.TemplateName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Status)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.StationID)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), item.InspectorNotes)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), item.CreatedAt.Format("2006-01-02 15:04"))
		if item.CompletedAt != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), item.CompletedAt.Format("2006-01-02 15:04"))
		}
	}

	colWidths := []float64{16, 16, 24, 10, 12, 30, 18, 18}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("检验记录_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}
