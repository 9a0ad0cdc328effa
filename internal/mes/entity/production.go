package entity

import "time"

// ProductionItem 量产生产项
type ProductionItem struct {
	ID          string  `json:"id" gorm:"primaryKey;size:32"`
	ItemCode    string  `json:"item_code" gorm:"size:32;uniqueIndex;not null"`
	OrderID     *string `json:"order_id" gorm:"size:32;index"`
	PartnerID   *string `json:"partner_id" gorm:"size:32;index"`
	ProductName string  `json:"product_name" gorm:"size:200"`
	SKUCode     string  `json:"sku_code" gorm:"size:64"`
	Quantity    int     `json:"quantity"`
	Station     string  `json:"station" gorm:"size:64"`

	Status   string `json:"status" gorm:"size:20;default:pending"`    // pending/in_progress/completed
	QCStatus string `json:"qc_status" gorm:"size:20;default:not_started"` // not_started/in_qc/passed/rework_required

	// 物料/工艺元数据，条件检验模板按此过滤
	Metadata JSONB `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionItem) TableName() string {
	return "mes_production_items"
}

// 生产项QC状态
const (
	QCStatusNotStarted     = "not_started"
	QCStatusInQC           = "in_qc"
	QCStatusPassed         = "passed"
	QCStatusReworkRequired = "rework_required"
)

// PrototypeProduction 打样/原型生产记录
type PrototypeProduction struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	PrototypeCode string  `json:"prototype_code" gorm:"size:32;uniqueIndex;not null"`
	OrderID       *string `json:"order_id" gorm:"size:32;index"`
	PartnerID     *string `json:"partner_id" gorm:"size:32;index"`
	ProductName   string  `json:"product_name" gorm:"size:200"`
	Round         int     `json:"round"` // 打样轮次

	Status       string `json:"status" gorm:"size:20;default:in_progress"`
	ReviewStatus string `json:"review_status" gorm:"size:20;default:not_started"` // not_started/in_review/approved/revision_required

	Metadata JSONB `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PrototypeProduction) TableName() string {
	return "mes_prototype_productions"
}

// 打样评审状态
const (
	ReviewStatusNotStarted       = "not_started"
	ReviewStatusInReview         = "in_review"
	ReviewStatusApproved         = "approved"
	ReviewStatusRevisionRequired = "revision_required"
)
