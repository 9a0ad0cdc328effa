package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/bitfantasy/nimo-mes/internal/shared/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 幂等键在redis中的前缀与保留时长，仅作快路径，真正的唯一性由数据库约束保证
const (
	idemKeyPrefix = "mes:qc:idem:"
	idemKeyTTL    = 24 * time.Hour
)

// InspectionService 质检检验服务
type InspectionService struct {
	repo            *repository.InspectionRepository
	templateRepo    *repository.TemplateRepository
	productionRepo  *repository.ProductionRepository
	activityLogRepo *repository.ActivityLogRepository
	rdb             *redis.Client
	store           *storage.ObjectStore
}

func NewInspectionService(repo *repository.InspectionRepository, templateRepo *repository.TemplateRepository, productionRepo *repository.ProductionRepository, rdb *redis.Client) *InspectionService {
	return &InspectionService{
		repo:           repo,
		templateRepo:   templateRepo,
		productionRepo: productionRepo,
		rdb:            rdb,
	}
}

// SetActivityLogRepo 设置操作日志仓库
func (s *InspectionService) SetActivityLogRepo(repo *repository.ActivityLogRepository) {
	s.activityLogRepo = repo
}

// SetObjectStore 设置对象存储，用于检验照片
func (s *InspectionService) SetObjectStore(store *storage.ObjectStore) {
	s.store = store
}

// StartInspectionRequest 发起检验请求
type StartInspectionRequest struct {
	ProductionItemID      *string `json:"production_item_id"`
	PrototypeProductionID *string `json:"prototype_production_id"`
	TemplateID            string  `json:"template_id" binding:"required"`
	StationID             string  `json:"station_id"`
	IdempotencyKey        string  `json:"idempotency_key" binding:"required"`
	InspectorID           *string `json:"inspector_id"`
}

// ListInspections 查询检验列表
func (s *InspectionService) ListInspections(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QCInspection, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetInspection 查询检验详情
func (s *InspectionService) GetInspection(ctx context.Context, id string) (*entity.QCInspection, error) {
	return s.repo.FindByID(ctx, id)
}

// StartInspection 发起一次检验
// 同一幂等键的重复请求返回首次创建的检验，不会重复生成章节跟踪行
// 返回值第二项表示本次调用是否真正创建了新检验
func (s *InspectionService) StartInspection(ctx context.Context, req *StartInspectionRequest, operatorID string) (*entity.QCInspection, bool, error) {
	if req.ProductionItemID == nil && req.PrototypeProductionID == nil {
		return nil, false, &PreconditionError{Reason: "必须指定生产项或打样记录"}
	}
	if req.ProductionItemID != nil && req.PrototypeProductionID != nil {
		return nil, false, &PreconditionError{Reason: "生产项和打样记录只能二选一"}
	}

	// redis快路径：命中直接返回已存在的检验
	if s.rdb != nil {
		if cachedID, err := s.rdb.Get(ctx, idemKeyPrefix+req.IdempotencyKey).Result(); err == nil && cachedID != "" {
			if existing, err := s.repo.FindByID(ctx, cachedID); err == nil {
				return existing, false, nil
			}
		}
	}

	if existing, err := s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	// 模板和主体必须存在
	if _, err := s.templateRepo.FindByID(ctx, req.TemplateID); err != nil {
		return nil, false, err
	}
	if req.ProductionItemID != nil {
		if _, err := s.productionRepo.FindItemByID(ctx, *req.ProductionItemID); err != nil {
			return nil, false, err
		}
	} else {
		if _, err := s.productionRepo.FindPrototypeByID(ctx, *req.PrototypeProductionID); err != nil {
			return nil, false, err
		}
	}

	sections, err := s.templateRepo.FindSections(ctx, req.TemplateID)
	if err != nil {
		return nil, false, err
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, false, err
	}

	inspection := &entity.QCInspection{
		ID:                    uuid.New().String()[:32],
		InspectionCode:        code,
		ProductionItemID:      req.ProductionItemID,
		PrototypeProductionID: req.PrototypeProductionID,
		TemplateID:            req.TemplateID,
		Status:                entity.QCInspectionStatusInProgress,
		StationID:             req.StationID,
		IdempotencyKey:        req.IdempotencyKey,
		InspectorID:           req.InspectorID,
		InspectionDate:        time.Now(),
	}

	if err := s.repo.Create(ctx, inspection); err != nil {
		// 并发下撞上幂等键唯一约束时回查，返回先到者
		if existing, lookupErr := s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}

	// 无条件为模板全部章节生成跟踪行，条件显示只影响前端呈现，不影响计数
	results := make([]entity.QCSectionResult, 0, len(sections))
	for _, section := range sections {
		results = append(results, entity.QCSectionResult{
			ID:           uuid.New().String()[:32],
			InspectionID: inspection.ID,
			SectionID:    section.ID,
			Status:       entity.SectionResultStatusPending,
		})
	}
	if err := s.repo.CreateSectionResults(ctx, results); err != nil {
		return nil, false, err
	}

	// 主体状态进入检验中
	if req.ProductionItemID != nil {
		if err := s.productionRepo.UpdateItemQCStatus(ctx, *req.ProductionItemID, entity.QCStatusInQC); err != nil {
			zap.L().Warn("更新生产项质检状态失败", zap.String("item_id", *req.ProductionItemID), zap.Error(err))
		}
	} else {
		if err := s.productionRepo.UpdatePrototypeReviewStatus(ctx, *req.PrototypeProductionID, entity.ReviewStatusInReview); err != nil {
			zap.L().Warn("更新打样评审状态失败", zap.String("prototype_id", *req.PrototypeProductionID), zap.Error(err))
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, idemKeyPrefix+req.IdempotencyKey, inspection.ID, idemKeyTTL).Err(); err != nil {
			zap.L().Warn("写入幂等键缓存失败", zap.String("key", req.IdempotencyKey), zap.Error(err))
		}
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "qc_inspection", inspection.ID, inspection.InspectionCode,
			"create", "", entity.QCInspectionStatusInProgress, "发起检验", operatorID, "")
	}
	sse.PublishInspectionUpdate(inspection.ID, "", entity.QCInspectionStatusInProgress)

	return inspection, true, nil
}

// SubmitCheckpointResultRequest 提交检查点结果请求
type SubmitCheckpointResultRequest struct {
	CheckpointID string `json:"checkpoint_id" binding:"required"`
	Status       string `json:"status" binding:"required,oneof=pass fail issue na"`
	Severity     string `json:"severity" binding:"omitempty,oneof=minor major critical"`
	Note         string `json:"note"`
}

// SubmitCheckpointResult 提交单个检查点结果
// 同一 (检验, 检查点) 重复提交覆盖旧值；所属章节从pending推进到in_progress
func (s *InspectionService) SubmitCheckpointResult(ctx context.Context, inspectionID string, req *SubmitCheckpointResultRequest) (*entity.QCCheckpointResult, error) {
	inspection, err := s.repo.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.Status != entity.QCInspectionStatusInProgress {
		return nil, &PreconditionError{Reason: "检验已判定，不能再提交检查点结果"}
	}

	checkpoint, err := s.templateRepo.FindCheckpointByID(ctx, req.CheckpointID)
	if err != nil {
		return nil, err
	}

	severity := ""
	if req.Status == entity.CheckpointStatusIssue {
		severity = req.Severity
		if severity == "" {
			severity = entity.SeverityMinor
		}
	}

	result := &entity.QCCheckpointResult{
		ID:           uuid.New().String()[:32],
		InspectionID: inspectionID,
		CheckpointID: req.CheckpointID,
		Status:       req.Status,
		Severity:     severity,
		Note:         req.Note,
	}
	if err := s.repo.UpsertCheckpointResult(ctx, result); err != nil {
		return nil, err
	}

	if sr, err := s.repo.FindSectionResult(ctx, inspectionID, checkpoint.SectionID); err == nil &&
		sr.Status == entity.SectionResultStatusPending {
		sr.Status = entity.SectionResultStatusInProgress
		if err := s.repo.UpdateSectionResult(ctx, sr); err != nil {
			zap.L().Warn("推进章节状态失败", zap.String("section_id", checkpoint.SectionID), zap.Error(err))
		}
	}

	return s.repo.FindCheckpointResult(ctx, inspectionID, req.CheckpointID)
}

// BatchPassSection 整章通过：章节下全部检查点写入pass结果并标记章节通过
// 返回写入的检查点数量
func (s *InspectionService) BatchPassSection(ctx context.Context, inspectionID, sectionID string) (int, error) {
	inspection, err := s.repo.FindByID(ctx, inspectionID)
	if err != nil {
		return 0, err
	}
	if inspection.Status != entity.QCInspectionStatusInProgress {
		return 0, &PreconditionError{Reason: "检验已判定，不能再整章通过"}
	}

	sectionResult, err := s.repo.FindSectionResult(ctx, inspectionID, sectionID)
	if err != nil {
		return 0, err
	}

	checkpoints, err := s.templateRepo.FindCheckpoints(ctx, sectionID)
	if err != nil {
		return 0, err
	}

	for i := range checkpoints {
		result := &entity.QCCheckpointResult{
			ID:           uuid.New().String()[:32],
			InspectionID: inspectionID,
			CheckpointID: checkpoints[i].ID,
			Status:       entity.CheckpointStatusPass,
		}
		if err := s.repo.UpsertCheckpointResult(ctx, result); err != nil {
			return 0, err
		}
	}

	now := time.Now()
	sectionResult.Status = entity.SectionResultStatusPassed
	sectionResult.CompletedAt = &now
	if err := s.repo.UpdateSectionResult(ctx, sectionResult); err != nil {
		return 0, err
	}

	return len(checkpoints), nil
}

// CompleteSectionRequest 标记章节完成请求
type CompleteSectionRequest struct {
	Status string `json:"status" binding:"required,oneof=completed passed failed"`
}

// CompleteSection 逐项提交后标记章节完成
func (s *InspectionService) CompleteSection(ctx context.Context, inspectionID, sectionID, status string) (*entity.QCSectionResult, error) {
	inspection, err := s.repo.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.Status != entity.QCInspectionStatusInProgress {
		return nil, &PreconditionError{Reason: "检验已判定，不能再修改章节状态"}
	}

	sectionResult, err := s.repo.FindSectionResult(ctx, inspectionID, sectionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sectionResult.Status = status
	sectionResult.CompletedAt = &now
	if err := s.repo.UpdateSectionResult(ctx, sectionResult); err != nil {
		return nil, err
	}
	return sectionResult, nil
}

// InspectionProgress 检验完成度
type InspectionProgress struct {
	TotalSections     int `json:"total_sections"`
	CompletedSections int `json:"completed_sections"`
	PercentComplete   int `json:"percent_complete"`
}

// GetInspectionProgress 计算检验完成度
// 完成度按模板章节计数，与条件显示无关；模板无章节时完成度为0
func (s *InspectionService) GetInspectionProgress(ctx context.Context, inspectionID string) (*InspectionProgress, error) {
	if _, err := s.repo.FindByID(ctx, inspectionID); err != nil {
		return nil, err
	}

	results, err := s.repo.FindSectionResults(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	progress := &InspectionProgress{TotalSections: len(results)}
	for _, r := range results {
		if entity.SectionResultDone(r.Status) {
			progress.CompletedSections++
		}
	}
	if progress.TotalSections > 0 {
		progress.PercentComplete = int(math.Round(float64(progress.CompletedSections) / float64(progress.TotalSections) * 100))
	}
	return progress, nil
}

// CanPassResult 能否判定通过的检查结果
type CanPassResult struct {
	CanPass  bool     `json:"can_pass"`
	Blockers []string `json:"blockers"`
}

// ValidateCanPass 预检能否判定通过，列出全部阻塞项
// 阻塞项：未关闭的致命问题、未完成上传的照片、未完成的章节
func (s *InspectionService) ValidateCanPass(ctx context.Context, inspectionID string) (*CanPassResult, error) {
	if _, err := s.repo.FindByID(ctx, inspectionID); err != nil {
		return nil, err
	}

	result := &CanPassResult{CanPass: true, Blockers: []string{}}

	criticals, err := s.repo.CountOpenCriticalIssues(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if criticals > 0 {
		result.Blockers = append(result.Blockers, fmt.Sprintf("%d 个未关闭的致命问题", criticals))
	}

	pendingPhotos, err := s.repo.CountPendingPhotos(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if pendingPhotos > 0 {
		result.Blockers = append(result.Blockers, fmt.Sprintf("%d 张照片未完成上传", pendingPhotos))
	}

	unfinished, err := s.repo.CountUnfinishedSections(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if unfinished > 0 {
		result.Blockers = append(result.Blockers, fmt.Sprintf("%d 个章节未完成", unfinished))
	}

	result.CanPass = len(result.Blockers) == 0
	return result, nil
}

// SubmitInspectionRequest 最终判定请求
type SubmitInspectionRequest struct {
	FinalStatus    string `json:"final_status" binding:"required,oneof=passed failed"`
	InspectorNotes string `json:"inspector_notes"`
}

// SubmitInspection 最终判定检验并级联更新主体状态
// 判定通过前强制复查致命问题，预检接口的结果不作数
func (s *InspectionService) SubmitInspection(ctx context.Context, inspectionID string, req *SubmitInspectionRequest, operatorID string) (*entity.QCInspection, error) {
	inspection, err := s.repo.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.Status != entity.QCInspectionStatusInProgress {
		return nil, &PreconditionError{Reason: "检验已判定，不能重复提交"}
	}

	if req.FinalStatus == entity.QCInspectionStatusPassed {
		criticals, err := s.repo.CountOpenCriticalIssues(ctx, inspectionID)
		if err != nil {
			return nil, err
		}
		if criticals > 0 {
			return nil, &PreconditionError{Reason: fmt.Sprintf("存在 %d 个未关闭的致命问题，不能判定通过", criticals)}
		}
	}

	fromStatus := inspection.Status
	now := time.Now()
	inspection.Status = req.FinalStatus
	inspection.CompletedAt = &now
	if req.InspectorNotes != "" {
		inspection.InspectorNotes = req.InspectorNotes
	}
	if err := s.repo.Update(ctx, inspection); err != nil {
		return nil, err
	}

	// 级联：生产项 passed/rework_required，打样 approved/revision_required
	if inspection.ProductionItemID != nil {
		qcStatus := entity.QCStatusPassed
		if req.FinalStatus == entity.QCInspectionStatusFailed {
			qcStatus = entity.QCStatusReworkRequired
		}
		if err := s.productionRepo.UpdateItemQCStatus(ctx, *inspection.ProductionItemID, qcStatus); err != nil {
			zap.L().Warn("级联更新生产项质检状态失败", zap.String("item_id", *inspection.ProductionItemID), zap.Error(err))
		}
	} else if inspection.PrototypeProductionID != nil {
		reviewStatus := entity.ReviewStatusApproved
		if req.FinalStatus == entity.QCInspectionStatusFailed {
			reviewStatus = entity.ReviewStatusRevisionRequired
		}
		if err := s.productionRepo.UpdatePrototypeReviewStatus(ctx, *inspection.PrototypeProductionID, reviewStatus); err != nil {
			zap.L().Warn("级联更新打样评审状态失败", zap.String("prototype_id", *inspection.PrototypeProductionID), zap.Error(err))
		}
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "qc_inspection", inspection.ID, inspection.InspectionCode,
			"submit", fromStatus, req.FinalStatus, req.InspectorNotes, operatorID, "")
	}
	sse.PublishInspectionUpdate(inspection.ID, fromStatus, req.FinalStatus)

	return inspection, nil
}

// ReworkInspectionView 返工视图：最近一次失败检验及其问题清单
type ReworkInspectionView struct {
	Inspection   *entity.QCInspection        `json:"inspection"`
	IssueResults []entity.QCCheckpointResult `json:"issue_results"`
}

// GetReworkInspection 查询主体最近一次失败检验供返工参考，只读不改状态
func (s *InspectionService) GetReworkInspection(ctx context.Context, productionItemID, prototypeProductionID *string) (*ReworkInspectionView, error) {
	inspection, err := s.repo.FindLatestFailedBySubject(ctx, productionItemID, prototypeProductionID)
	if err != nil {
		return nil, err
	}

	issues, err := s.repo.FindIssueResults(ctx, inspection.ID)
	if err != nil {
		return nil, err
	}

	return &ReworkInspectionView{Inspection: inspection, IssueResults: issues}, nil
}

// GetSectionResults 查询检验章节跟踪行
func (s *InspectionService) GetSectionResults(ctx context.Context, inspectionID string) ([]entity.QCSectionResult, error) {
	if _, err := s.repo.FindByID(ctx, inspectionID); err != nil {
		return nil, err
	}
	return s.repo.FindSectionResults(ctx, inspectionID)
}

// GetCheckpointResults 查询检验检查点结果
func (s *InspectionService) GetCheckpointResults(ctx context.Context, inspectionID string) ([]entity.QCCheckpointResult, error) {
	if _, err := s.repo.FindByID(ctx, inspectionID); err != nil {
		return nil, err
	}
	return s.repo.FindCheckpointResults(ctx, inspectionID)
}

// UploadPhoto 上传检验照片
// 先落库uploading再推对象存储，失败保留failed记录供重传
func (s *InspectionService) UploadPhoto(ctx context.Context, inspectionID string, checkpointID *string, fileName, contentType string, size int64, reader io.Reader, uploadedBy string) (*entity.QCInspectionPhoto, error) {
	if _, err := s.repo.FindByID(ctx, inspectionID); err != nil {
		return nil, err
	}

	photo := &entity.QCInspectionPhoto{
		ID:           uuid.New().String()[:32],
		InspectionID: inspectionID,
		CheckpointID: checkpointID,
		FileName:     fileName,
		ContentType:  contentType,
		Size:         size,
		UploadStatus: entity.PhotoStatusUploading,
		UploadedBy:   uploadedBy,
	}
	photo.ObjectKey = fmt.Sprintf("qc/%s/%s%s", inspectionID, photo.ID, filepath.Ext(fileName))

	if err := s.repo.CreatePhoto(ctx, photo); err != nil {
		return nil, err
	}

	if s.store == nil {
		photo.UploadStatus = entity.PhotoStatusFailed
		_ = s.repo.UpdatePhoto(ctx, photo)
		return nil, &PreconditionError{Reason: "对象存储未配置"}
	}

	if err := s.store.Put(ctx, photo.ObjectKey, reader, size, contentType); err != nil {
		photo.UploadStatus = entity.PhotoStatusFailed
		_ = s.repo.UpdatePhoto(ctx, photo)
		return nil, fmt.Errorf("上传照片失败: %w", err)
	}

	photo.UploadStatus = entity.PhotoStatusUploaded
	if err := s.repo.UpdatePhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// GetPhotos 查询检验照片列表
func (s *InspectionService) GetPhotos(ctx context.Context, inspectionID string) ([]entity.QCInspectionPhoto, error) {
	if _, err := s.repo.FindByID(ctx, inspectionID); err != nil {
		return nil, err
	}
	return s.repo.FindPhotos(ctx, inspectionID)
}
