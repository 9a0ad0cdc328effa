package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InspectionRepository 检验仓库
type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// FindAll 查询检验列表
func (r *InspectionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QCInspection, int64, error) {
	var items []entity.QCInspection
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.QCInspection{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if itemID := filters["production_item_id"]; itemID != "" {
		query = query.Where("production_item_id = ?", itemID)
	}
	if protoID := filters["prototype_production_id"]; protoID != "" {
		query = query.Where("prototype_production_id = ?", protoID)
	}
	if templateID := filters["template_id"]; templateID != "" {
		query = query.Where("template_id = ?", templateID)
	}
	if station := filters["station_id"]; station != "" {
		query = query.Where("station_id = ?", station)
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

// FindByID 根据ID查找检验
func (r *InspectionRepository) FindByID(ctx context.Context, id string) (*entity.QCInspection, error) {
	var inspection entity.QCInspection
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&inspection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inspection, nil
}

// FindByIdempotencyKey 根据幂等键查找检验，不存在返回nil而非错误
func (r *InspectionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.QCInspection, error) {
	var inspection entity.QCInspection
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&inspection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inspection, nil
}

// Create 创建检验
func (r *InspectionRepository) Create(ctx context.Context, inspection *entity.QCInspection) error {
	return r.db.WithContext(ctx).Create(inspection).Error
}

// Update 更新检验
func (r *InspectionRepository) Update(ctx context.Context, inspection *entity.QCInspection) error {
	return r.db.WithContext(ctx).Save(inspection).Error
}

// CreateSectionResults 批量创建章节跟踪行
func (r *InspectionRepository) CreateSectionResults(ctx context.Context, results []entity.QCSectionResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

// FindSectionResults 查询检验的全部章节跟踪行
func (r *InspectionRepository) FindSectionResults(ctx context.Context, inspectionID string) ([]entity.QCSectionResult, error) {
	var results []entity.QCSectionResult
	err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at ASC").
		Find(&results).Error
	return results, err
}

// FindSectionResult 查找 (inspection, section) 对应的跟踪行
func (r *InspectionRepository) FindSectionResult(ctx context.Context, inspectionID, sectionID string) (*entity.QCSectionResult, error) {
	var result entity.QCSectionResult
	err := r.db.WithContext(ctx).
		Where("inspection_id = ? AND section_id = ?", inspectionID, sectionID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// UpdateSectionResult 更新章节跟踪行
func (r *InspectionRepository) UpdateSectionResult(ctx context.Context, result *entity.QCSectionResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}

// UpsertCheckpointResult 按 (inspection_id, checkpoint_id) 唯一键插入或覆盖检查点结果
// 依赖数据库唯一索引，避免读-改-写竞态
func (r *InspectionRepository) UpsertCheckpointResult(ctx context.Context, result *entity.QCCheckpointResult) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "inspection_id"}, {Name: "checkpoint_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "severity", "note", "updated_at"}),
	}).Create(result).Error
}

// FindCheckpointResults 查询检验的全部检查点结果
func (r *InspectionRepository) FindCheckpointResults(ctx context.Context, inspectionID string) ([]entity.QCCheckpointResult, error) {
	var results []entity.QCCheckpointResult
	err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Find(&results).Error
	return results, err
}

// FindCheckpointResult 查找 (inspection, checkpoint) 对应的结果
func (r *InspectionRepository) FindCheckpointResult(ctx context.Context, inspectionID, checkpointID string) (*entity.QCCheckpointResult, error) {
	var result entity.QCCheckpointResult
	err := r.db.WithContext(ctx).
		Where("inspection_id = ? AND checkpoint_id = ?", inspectionID, checkpointID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// CountOpenCriticalIssues 统计未关闭的致命问题数
func (r *InspectionRepository) CountOpenCriticalIssues(ctx context.Context, inspectionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.QCCheckpointResult{}).
		Where("inspection_id = ? AND status = ? AND severity = ?",
			inspectionID, entity.CheckpointStatusIssue, entity.SeverityCritical).
		Count(&count).Error
	return count, err
}

// CountUnfinishedSections 统计尚未完成的章节数（pending/in_progress）
func (r *InspectionRepository) CountUnfinishedSections(ctx context.Context, inspectionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.QCSectionResult{}).
		Where("inspection_id = ? AND status IN ?", inspectionID,
			[]string{entity.SectionResultStatusPending, entity.SectionResultStatusInProgress}).
		Count(&count).Error
	return count, err
}

// CountPendingPhotos 统计未完成上传的照片数（pending/uploading）
func (r *InspectionRepository) CountPendingPhotos(ctx context.Context, inspectionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.QCInspectionPhoto{}).
		Where("inspection_id = ? AND upload_status IN ?", inspectionID,
			[]string{entity.PhotoStatusPending, entity.PhotoStatusUploading}).
		Count(&count).Error
	return count, err
}

// FindLatestFailedBySubject 查找主体最近一次失败的检验，带issue检查点结果和全部章节跟踪行
func (r *InspectionRepository) FindLatestFailedBySubject(ctx context.Context, productionItemID, prototypeProductionID *string) (*entity.QCInspection, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", entity.QCInspectionStatusFailed)

	if productionItemID != nil {
		query = query.Where("production_item_id = ?", *productionItemID)
	} else if prototypeProductionID != nil {
		query = query.Where("prototype_production_id = ?", *prototypeProductionID)
	} else {
		return nil, ErrNotFound
	}

	var inspection entity.QCInspection
	err := query.
		Preload("SectionResults").
		Order("created_at DESC").
		First(&inspection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inspection, nil
}

// FindIssueResults 查询检验的issue检查点结果，带检查点定义
func (r *InspectionRepository) FindIssueResults(ctx context.Context, inspectionID string) ([]entity.QCCheckpointResult, error) {
	var results []entity.QCCheckpointResult
	err := r.db.WithContext(ctx).
		Preload("Checkpoint").
		Where("inspection_id = ? AND status = ?", inspectionID, entity.CheckpointStatusIssue).
		Find(&results).Error
	return results, err
}

// CreatePhoto 创建照片记录
func (r *InspectionRepository) CreatePhoto(ctx context.Context, photo *entity.QCInspectionPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// UpdatePhoto 更新照片记录
func (r *InspectionRepository) UpdatePhoto(ctx context.Context, photo *entity.QCInspectionPhoto) error {
	return r.db.WithContext(ctx).Save(photo).Error
}

// FindPhotos 查询检验的照片
func (r *InspectionRepository) FindPhotos(ctx context.Context, inspectionID string) ([]entity.QCInspectionPhoto, error) {
	var photos []entity.QCInspectionPhoto
	err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at ASC").
		Find(&photos).Error
	return photos, err
}

// FindPhotoByID 根据ID查找照片
func (r *InspectionRepository) FindPhotoByID(ctx context.Context, id string) (*entity.QCInspectionPhoto, error) {
	var photo entity.QCInspectionPhoto
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &photo, nil
}

// GenerateCode 生成检验编码 QC-{year}-{4位}
func (r *InspectionRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("QC-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.QCInspection{}).
		Select("COALESCE(MAX(inspection_code), '')").
		Where("inspection_code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "QC-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("QC-%s-%04d", year, seq), nil
}
