package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// TemplateRepository 检验模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindAll 查询模板列表
func (r *TemplateRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QCTemplate, int64, error) {
	var items []entity.QCTemplate
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.QCTemplate{})

	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
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

// FindByID 根据ID查找模板（不带章节）
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.QCTemplate, error) {
	var tpl entity.QCTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// FindByIDWithSections 查找模板并预加载章节、检查点，按序号排序
func (r *TemplateRepository) FindByIDWithSections(ctx context.Context, id string) (*entity.QCTemplate, error) {
	var tpl entity.QCTemplate
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("section_number ASC")
		}).
		Preload("Sections.Checkpoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// FindSections 查询模板的全部章节，按序号排序
func (r *TemplateRepository) FindSections(ctx context.Context, templateID string) ([]entity.QCTemplateSection, error) {
	var sections []entity.QCTemplateSection
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("section_number ASC").
		Find(&sections).Error
	return sections, err
}

// FindSectionByID 根据ID查找章节
func (r *TemplateRepository) FindSectionByID(ctx context.Context, id string) (*entity.QCTemplateSection, error) {
	var section entity.QCTemplateSection
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&section).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// FindCheckpoints 查询章节的全部检查点，按显示顺序排序
func (r *TemplateRepository) FindCheckpoints(ctx context.Context, sectionID string) ([]entity.QCTemplateCheckpoint, error) {
	var checkpoints []entity.QCTemplateCheckpoint
	err := r.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("display_order ASC").
		Find(&checkpoints).Error
	return checkpoints, err
}

// FindCheckpointByID 根据ID查找检查点
func (r *TemplateRepository) FindCheckpointByID(ctx context.Context, id string) (*entity.QCTemplateCheckpoint, error) {
	var cp entity.QCTemplateCheckpoint
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cp, nil
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.QCTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.QCTemplate) error {
	return r.db.WithContext(ctx).Save(tpl).Error
}

// CreateSection 创建章节
func (r *TemplateRepository) CreateSection(ctx context.Context, section *entity.QCTemplateSection) error {
	return r.db.WithContext(ctx).Create(section).Error
}

// CreateCheckpoint 创建检查点
func (r *TemplateRepository) CreateCheckpoint(ctx context.Context, cp *entity.QCTemplateCheckpoint) error {
	return r.db.WithContext(ctx).Create(cp).Error
}
