package service

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/shared/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services MES服务集合
type Services struct {
	Order      *OrderService
	Production *ProductionService
	Partner    *PartnerService
	Template   *TemplateService
	Inspection *InspectionService
	Report     *ReportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, store *storage.ObjectStore) *Services {
	inspectionSvc := NewInspectionService(repos.Inspection, repos.Template, repos.Production, rdb)
	inspectionSvc.SetActivityLogRepo(repos.ActivityLog)
	inspectionSvc.SetObjectStore(store)

	orderSvc := NewOrderService(repos.Order)
	orderSvc.SetActivityLogRepo(repos.ActivityLog)

	return &Services{
		Order:      orderSvc,
		Production: NewProductionService(repos.Production),
		Partner:    NewPartnerService(repos.Partner),
		Template:   NewTemplateService(repos.Template),
		Inspection: inspectionSvc,
		Report:     NewReportService(db),
	}
}
