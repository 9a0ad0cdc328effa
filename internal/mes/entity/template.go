package entity

import "time"

// QCTemplate 检验模板（章节+检查点的可复用清单定义）
type QCTemplate struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Code        string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string `json:"name" gorm:"size:200;not null"`
	Category    string `json:"category" gorm:"size:50"` // prototype/production/packaging
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"size:20;default:active"` // active/archived
	CreatedBy   string `json:"created_by" gorm:"size:32"`

	Sections []QCTemplateSection `json:"sections,omitempty" gorm:"foreignKey:TemplateID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QCTemplate) TableName() string {
	return "mes_qc_templates"
}

// QCTemplateSection 模板章节，按section_number排序
type QCTemplateSection struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	TemplateID    string `json:"template_id" gorm:"size:32;index;not null"`
	SectionNumber int    `json:"section_number" gorm:"not null"`
	Name          string `json:"name" gorm:"size:200;not null"`
	Description   string `json:"description" gorm:"type:text"`

	// 条件显示: {"show_if": {"material": "aluminum"}}，全部匹配才显示，为空则始终显示
	ConditionalLogic JSONB `json:"conditional_logic" gorm:"type:jsonb"`

	Checkpoints []QCTemplateCheckpoint `json:"checkpoints,omitempty" gorm:"foreignKey:SectionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QCTemplateSection) TableName() string {
	return "mes_qc_template_sections"
}

// QCTemplateCheckpoint 章节下的检查点，按display_order排序
type QCTemplateCheckpoint struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	SectionID    string `json:"section_id" gorm:"size:32;index;not null"`
	DisplayOrder int    `json:"display_order" gorm:"not null"`
	Name         string `json:"name" gorm:"size:200;not null"`
	Requirement  string `json:"requirement" gorm:"type:text"`
	RequiresPhoto bool  `json:"requires_photo" gorm:"default:false"`

	ConditionalLogic JSONB `json:"conditional_logic" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QCTemplateCheckpoint) TableName() string {
	return "mes_qc_template_checkpoints"
}
