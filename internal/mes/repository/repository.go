package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories MES仓库集合
type Repositories struct {
	Order       *OrderRepository
	Production  *ProductionRepository
	Partner     *PartnerRepository
	Template    *TemplateRepository
	Inspection  *InspectionRepository
	ActivityLog *ActivityLogRepository
}

// NewRepositories 创建MES仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:       NewOrderRepository(db),
		Production:  NewProductionRepository(db),
		Partner:     NewPartnerRepository(db),
		Template:    NewTemplateRepository(db),
		Inspection:  NewInspectionRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}
