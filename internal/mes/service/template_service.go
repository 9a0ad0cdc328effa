package service

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// TemplateService 检验模板服务
type TemplateService struct {
	repo *repository.TemplateRepository
}

func NewTemplateService(repo *repository.TemplateRepository) *TemplateService {
	return &TemplateService{repo: repo}
}

// ListTemplates 查询模板列表
func (s *TemplateService) ListTemplates(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QCTemplate, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetTemplate 查询模板详情（含排序后的章节和检查点）
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*entity.QCTemplate, error) {
	return s.repo.FindByIDWithSections(ctx, id)
}

// RenderTemplate 按主体元数据渲染模板：过滤掉条件不满足的章节和检查点
// 只影响呈现，检验的章节跟踪行和完成度不受过滤影响
func (s *TemplateService) RenderTemplate(ctx context.Context, id string, metadata entity.JSONB) (*entity.QCTemplate, error) {
	tpl, err := s.repo.FindByIDWithSections(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := make([]entity.QCTemplateSection, 0, len(tpl.Sections))
	for _, section := range tpl.Sections {
		if !EvaluateShowIf(section.ConditionalLogic, metadata) {
			continue
		}
		checkpoints := make([]entity.QCTemplateCheckpoint, 0, len(section.Checkpoints))
		for _, cp := range section.Checkpoints {
			if EvaluateShowIf(cp.ConditionalLogic, metadata) {
				checkpoints = append(checkpoints, cp)
			}
		}
		section.Checkpoints = checkpoints
		visible = append(visible, section)
	}
	tpl.Sections = visible
	return tpl, nil
}

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// CreateTemplate 创建模板
func (s *TemplateService) CreateTemplate(ctx context.Context, req *CreateTemplateRequest, operatorID string) (*entity.QCTemplate, error) {
	tpl := &entity.QCTemplate{
		ID:          uuid.New().String()[:32],
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Status:      "active",
		CreatedBy:   operatorID,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// UpdateTemplateRequest 更新模板请求
type UpdateTemplateRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=active archived"`
}

// UpdateTemplate 更新模板基础信息
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, req *UpdateTemplateRequest) (*entity.QCTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Category != nil {
		tpl.Category = *req.Category
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Status != nil {
		tpl.Status = *req.Status
	}
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// AddSectionRequest 添加章节请求
type AddSectionRequest struct {
	SectionNumber    int          `json:"section_number" binding:"required"`
	Name             string       `json:"name" binding:"required"`
	Description      string       `json:"description"`
	ConditionalLogic entity.JSONB `json:"conditional_logic"`
}

// AddSection 向模板追加章节
func (s *TemplateService) AddSection(ctx context.Context, templateID string, req *AddSectionRequest) (*entity.QCTemplateSection, error) {
	if _, err := s.repo.FindByID(ctx, templateID); err != nil {
		return nil, err
	}
	section := &entity.QCTemplateSection{
		ID:               uuid.New().String()[:32],
		TemplateID:       templateID,
		SectionNumber:    req.SectionNumber,
		Name:             req.Name,
		Description:      req.Description,
		ConditionalLogic: req.ConditionalLogic,
	}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// AddCheckpointRequest 添加检查点请求
type AddCheckpointRequest struct {
	DisplayOrder     int          `json:"display_order"`
	Name             string       `json:"name" binding:"required"`
	Requirement      string       `json:"requirement"`
	RequiresPhoto    bool         `json:"requires_photo"`
	ConditionalLogic entity.JSONB `json:"conditional_logic"`
}

// AddCheckpoint 向章节追加检查点
func (s *TemplateService) AddCheckpoint(ctx context.Context, sectionID string, req *AddCheckpointRequest) (*entity.QCTemplateCheckpoint, error) {
	if _, err := s.repo.FindSectionByID(ctx, sectionID); err != nil {
		return nil, err
	}
	cp := &entity.QCTemplateCheckpoint{
		ID:               uuid.New().String()[:32],
		SectionID:        sectionID,
		DisplayOrder:     req.DisplayOrder,
		Name:             req.Name,
		Requirement:      req.Requirement,
		RequiresPhoto:    req.RequiresPhoto,
		ConditionalLogic: req.ConditionalLogic,
	}
	if err := s.repo.CreateCheckpoint(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}
