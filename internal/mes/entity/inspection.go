package entity

import "time"

// QCInspection 一次检验实例
// ProductionItemID 和 PrototypeProductionID 二选一，由调用方保证
type QCInspection struct {
	ID                    string  `json:"id" gorm:"primaryKey;size:32"`
	InspectionCode        string  `json:"inspection_code" gorm:"size:32;uniqueIndex;not null"`
	ProductionItemID      *string `json:"production_item_id" gorm:"size:32;index"`
	PrototypeProductionID *string `json:"prototype_production_id" gorm:"size:32;index"`
	TemplateID            string  `json:"template_id" gorm:"size:32;index;not null"`

	Status    string `json:"status" gorm:"size:20;default:in_progress"` // in_progress/passed/failed
	StationID string `json:"station_id" gorm:"size:64"`

	// 幂等键：同一键的重复创建请求返回已存在的检验
	IdempotencyKey string `json:"idempotency_key" gorm:"size:64;uniqueIndex;not null"`

	InspectorID    *string    `json:"inspector_id" gorm:"size:32"`
	InspectorNotes string     `json:"inspector_notes" gorm:"type:text"`
	InspectionDate time.Time  `json:"inspection_date"`
	CompletedAt    *time.Time `json:"completed_at"`

	SectionResults []QCSectionResult `json:"section_results,omitempty" gorm:"foreignKey:InspectionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QCInspection) TableName() string {
	return "mes_qc_inspections"
}

// 检验状态
const (
	QCInspectionStatusInProgress = "in_progress"
	QCInspectionStatusPassed     = "passed"
	QCInspectionStatusFailed     = "failed"
)

// QCSectionResult 检验内每个模板章节的跟踪行，创建检验时全量生成
type QCSectionResult struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	InspectionID string     `json:"inspection_id" gorm:"size:32;index:idx_section_result_pair,unique;not null"`
	SectionID    string     `json:"section_id" gorm:"size:32;index:idx_section_result_pair,unique;not null"`
	Status       string     `json:"status" gorm:"size:20;default:pending"` // pending/in_progress/completed/passed/failed
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (QCSectionResult) TableName() string {
	return "mes_qc_section_results"
}

// 章节结果状态
const (
	SectionResultStatusPending    = "pending"
	SectionResultStatusInProgress = "in_progress"
	SectionResultStatusCompleted  = "completed"
	SectionResultStatusPassed     = "passed"
	SectionResultStatusFailed     = "failed"
)

// SectionResultDone 章节是否计入完成度
func SectionResultDone(status string) bool {
	switch status {
	case SectionResultStatusCompleted, SectionResultStatusPassed, SectionResultStatusFailed:
		return true
	}
	return false
}

// QCCheckpointResult 检查点结果
// (inspection_id, checkpoint_id) 唯一，重复提交覆盖旧值
type QCCheckpointResult struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	InspectionID string `json:"inspection_id" gorm:"size:32;index:idx_checkpoint_result_pair,unique;not null"`
	CheckpointID string `json:"checkpoint_id" gorm:"size:32;index:idx_checkpoint_result_pair,unique;not null"`
	Status       string `json:"status" gorm:"size:20;not null"` // pass/fail/issue/na
	Severity     string `json:"severity" gorm:"size:20"`        // minor/major/critical，status=issue时有意义
	Note         string `json:"note" gorm:"size:500"`

	Checkpoint *QCTemplateCheckpoint `json:"checkpoint,omitempty" gorm:"foreignKey:CheckpointID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QCCheckpointResult) TableName() string {
	return "mes_qc_checkpoint_results"
}

// 检查点结果状态
const (
	CheckpointStatusPass  = "pass"
	CheckpointStatusFail  = "fail"
	CheckpointStatusIssue = "issue"
	CheckpointStatusNA    = "na"
)

// 问题严重度
const (
	SeverityMinor    = "minor"
	SeverityMajor    = "major"
	SeverityCritical = "critical"
)

// QCInspectionPhoto 检验照片，照片未完成上传会阻塞判定通过
type QCInspectionPhoto struct {
	ID           string  `json:"id" gorm:"primaryKey;size:32"`
	InspectionID string  `json:"inspection_id" gorm:"size:32;index;not null"`
	CheckpointID *string `json:"checkpoint_id" gorm:"size:32"`
	FileName     string  `json:"file_name" gorm:"size:256"`
	ObjectKey    string  `json:"object_key" gorm:"size:512"`
	ContentType  string  `json:"content_type" gorm:"size:100"`
	Size         int64   `json:"size"`
	UploadStatus string  `json:"upload_status" gorm:"size:20;default:pending"` // pending/uploading/uploaded/failed
	UploadedBy   string  `json:"uploaded_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QCInspectionPhoto) TableName() string {
	return "mes_qc_inspection_photos"
}

// 照片上传状态
const (
	PhotoStatusPending   = "pending"
	PhotoStatusUploading = "uploading"
	PhotoStatusUploaded  = "uploaded"
	PhotoStatusFailed    = "failed"
)
