package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// ProductionRepository 生产项/打样记录仓库
type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// FindItems 查询生产项列表
func (r *ProductionRepository) FindItems(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionItem, int64, error) {
	var items []entity.ProductionItem
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionItem{})

	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if qcStatus := filters["qc_status"]; qcStatus != "" {
		query = query.Where("qc_status = ?", qcStatus)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if partnerID := filters["partner_id"]; partnerID != "" {
		query = query.Where("partner_id = ?", partnerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindItemByID 根据ID查找生产项
func (r *ProductionRepository) FindItemByID(ctx context.Context, id string) (*entity.ProductionItem, error) {
	var item entity.ProductionItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateItem 创建生产项
func (r *ProductionRepository) CreateItem(ctx context.Context, item *entity.ProductionItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 更新生产项
func (r *ProductionRepository) UpdateItem(ctx context.Context, item *entity.ProductionItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// UpdateItemQCStatus 更新生产项QC状态
func (r *ProductionRepository) UpdateItemQCStatus(ctx context.Context, id, qcStatus string) error {
	return r.db.WithContext(ctx).
		Model(&entity.ProductionItem{}).
		Where("id = ?", id).
		Update("qc_status", qcStatus).Error
}

// FindPrototypeByID 根据ID查找打样记录
func (r *ProductionRepository) FindPrototypeByID(ctx context.Context, id string) (*entity.PrototypeProduction, error) {
	var proto entity.PrototypeProduction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&proto).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &proto, nil
}

// FindPrototypes 查询打样记录列表
func (r *ProductionRepository) FindPrototypes(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PrototypeProduction, int64, error) {
	var items []entity.PrototypeProduction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PrototypeProduction{})

	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if reviewStatus := filters["review_status"]; reviewStatus != "" {
		query = query.Where("review_status = ?", reviewStatus)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// CreatePrototype 创建打样记录
func (r *ProductionRepository) CreatePrototype(ctx context.Context, proto *entity.PrototypeProduction) error {
	return r.db.WithContext(ctx).Create(proto).Error
}

// UpdatePrototype 更新打样记录
func (r *ProductionRepository) UpdatePrototype(ctx context.Context, proto *entity.PrototypeProduction) error {
	return r.db.WithContext(ctx).Save(proto).Error
}

// UpdatePrototypeReviewStatus 更新打样评审状态
func (r *ProductionRepository) UpdatePrototypeReviewStatus(ctx context.Context, id, reviewStatus string) error {
	return r.db.WithContext(ctx).
		Model(&entity.PrototypeProduction{}).
		Where("id = ?", id).
		Update("review_status", reviewStatus).Error
}

// GenerateItemCode 生成生产项编码 PI-{year}-{4位}
func (r *ProductionRepository) GenerateItemCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PI-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionItem{}).
		Select("COALESCE(MAX(item_code), '')").
		Where("item_code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "PI-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PI-%s-%04d", year, seq), nil
}

// GeneratePrototypeCode 生成打样编码 PT-{year}-{4位}
func (r *ProductionRepository) GeneratePrototypeCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PT-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.PrototypeProduction{}).
		Select("COALESCE(MAX(prototype_code), '')").
		Where("prototype_code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "PT-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PT-%s-%04d", year, seq), nil
}
