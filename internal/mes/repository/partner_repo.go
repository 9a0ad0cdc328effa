package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// PartnerRepository 合作伙伴仓库
type PartnerRepository struct {
	db *gorm.DB
}

func NewPartnerRepository(db *gorm.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// FindAll 查询伙伴列表
func (r *PartnerRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Partner, int64, error) {
	var items []entity.Partner
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Partner{})

	if ptype := filters["type"]; ptype != "" {
		query = query.Where("type = ?", ptype)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
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

// FindByID 根据ID查找伙伴
func (r *PartnerRepository) FindByID(ctx context.Context, id string) (*entity.Partner, error) {
	var partner entity.Partner
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&partner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &partner, nil
}

// Create 创建伙伴
func (r *PartnerRepository) Create(ctx context.Context, partner *entity.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

// Update 更新伙伴
func (r *PartnerRepository) Update(ctx context.Context, partner *entity.Partner) error {
	return r.db.WithContext(ctx).Save(partner).Error
}

// Delete 删除伙伴
func (r *PartnerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Partner{}, "id = ?", id).Error
}
