package entity

import "time"

// Partner 合作伙伴（工厂/设计师）
type Partner struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Code     string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name     string `json:"name" gorm:"size:200;not null"`
	Type     string `json:"type" gorm:"size:20;not null"` // factory/designer
	Status   string `json:"status" gorm:"size:20;default:active"` // active/inactive
	Region   string `json:"region" gorm:"size:100"`
	Contact  string `json:"contact" gorm:"size:100"`
	Phone    string `json:"phone" gorm:"size:50"`
	Email    string `json:"email" gorm:"size:100"`
	Notes    string `json:"notes" gorm:"type:text"`
	CreatedBy string `json:"created_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Partner) TableName() string {
	return "mes_partners"
}

// 伙伴类型
const (
	PartnerTypeFactory  = "factory"
	PartnerTypeDesigner = "designer"
)
