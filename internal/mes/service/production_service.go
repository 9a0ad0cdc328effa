package service

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// ProductionService 生产记录服务
type ProductionService struct {
	repo *repository.ProductionRepository
}

func NewProductionService(repo *repository.ProductionRepository) *ProductionService {
	return &ProductionService{repo: repo}
}

// ListItems 查询生产项列表
func (s *ProductionService) ListItems(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionItem, int64, error) {
	return s.repo.FindItems(ctx, page, pageSize, filters)
}

// GetItem 查询生产项详情
func (s *ProductionService) GetItem(ctx context.Context, id string) (*entity.ProductionItem, error) {
	return s.repo.FindItemByID(ctx, id)
}

// CreateItemRequest 创建生产项请求
type CreateItemRequest struct {
	OrderID     *string      `json:"order_id"`
	PartnerID   *string      `json:"partner_id"`
	ProductName string       `json:"product_name" binding:"required"`
	SKUCode     string       `json:"sku_code"`
	Quantity    int          `json:"quantity"`
	Station     string       `json:"station"`
	Metadata    entity.JSONB `json:"metadata"`
}

// CreateItem 创建生产项
func (s *ProductionService) CreateItem(ctx context.Context, req *CreateItemRequest) (*entity.ProductionItem, error) {
	code, err := s.repo.GenerateItemCode(ctx)
	if err != nil {
		return nil, err
	}
	item := &entity.ProductionItem{
		ID:          uuid.New().String()[:32],
		ItemCode:    code,
		OrderID:     req.OrderID,
		PartnerID:   req.PartnerID,
		ProductName: req.ProductName,
		SKUCode:     req.SKUCode,
		Quantity:    req.Quantity,
		Station:     req.Station,
		Status:      "pending",
		QCStatus:    entity.QCStatusNotStarted,
		Metadata:    req.Metadata,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItemRequest 更新生产项请求
type UpdateItemRequest struct {
	ProductName *string      `json:"product_name"`
	SKUCode     *string      `json:"sku_code"`
	Quantity    *int         `json:"quantity"`
	Station     *string      `json:"station"`
	Status      *string      `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Metadata    entity.JSONB `json:"metadata"`
}

// UpdateItem 更新生产项，QC状态由检验流程级联维护，不在此处修改
func (s *ProductionService) UpdateItem(ctx context.Context, id string, req *UpdateItemRequest) (*entity.ProductionItem, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ProductName != nil {
		item.ProductName = *req.ProductName
	}
	if req.SKUCode != nil {
		item.SKUCode = *req.SKUCode
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Station != nil {
		item.Station = *req.Station
	}
	if req.Status != nil {
		item.Status = *req.Status
	}
	if req.Metadata != nil {
		item.Metadata = req.Metadata
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListPrototypes 查询打样记录列表
func (s *ProductionService) ListPrototypes(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PrototypeProduction, int64, error) {
	return s.repo.FindPrototypes(ctx, page, pageSize, filters)
}

// GetPrototype 查询打样记录详情
func (s *ProductionService) GetPrototype(ctx context.Context, id string) (*entity.PrototypeProduction, error) {
	return s.repo.FindPrototypeByID(ctx, id)
}

// CreatePrototypeRequest 创建打样记录请求
type CreatePrototypeRequest struct {
	OrderID     *string      `json:"order_id"`
	PartnerID   *string      `json:"partner_id"`
	ProductName string       `json:"product_name" binding:"required"`
	Round       int          `json:"round"`
	Metadata    entity.JSONB `json:"metadata"`
}

// CreatePrototype 创建打样记录
func (s *ProductionService) CreatePrototype(ctx context.Context, req *CreatePrototypeRequest) (*entity.PrototypeProduction, error) {
	code, err := s.repo.GeneratePrototypeCode(ctx)
	if err != nil {
		return nil, err
	}
	round := req.Round
	if round <= 0 {
		round = 1
	}
	proto := &entity.PrototypeProduction{
		ID:            uuid.New().String()[:32],
		PrototypeCode: code,
		OrderID:       req.OrderID,
		PartnerID:     req.PartnerID,
		ProductName:   req.ProductName,
		Round:         round,
		Status:        "in_progress",
		ReviewStatus:  entity.ReviewStatusNotStarted,
		Metadata:      req.Metadata,
	}
	if err := s.repo.CreatePrototype(ctx, proto); err != nil {
		return nil, err
	}
	return proto, nil
}

// StartNextRound 评审不通过后开启下一轮打样
func (s *ProductionService) StartNextRound(ctx context.Context, id string) (*entity.PrototypeProduction, error) {
	prev, err := s.repo.FindPrototypeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.ReviewStatus != entity.ReviewStatusRevisionRequired {
		return nil, &PreconditionError{Reason: "只有评审不通过的打样才能开启下一轮"}
	}

	code, err := s.repo.GeneratePrototypeCode(ctx)
	if err != nil {
		return nil, err
	}
	next := &entity.PrototypeProduction{
		ID:            uuid.New().String()[:32],
		PrototypeCode: code,
		OrderID:       prev.OrderID,
		PartnerID:     prev.PartnerID,
		ProductName:   prev.ProductName,
		Round:         prev.Round + 1,
		Status:        "in_progress",
		ReviewStatus:  entity.ReviewStatusNotStarted,
		Metadata:      prev.Metadata,
	}
	if err := s.repo.CreatePrototype(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
