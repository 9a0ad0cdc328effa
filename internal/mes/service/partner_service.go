package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// PartnerService 合作伙伴服务
type PartnerService struct {
	repo *repository.PartnerRepository
}

func NewPartnerService(repo *repository.PartnerRepository) *PartnerService {
	return &PartnerService{repo: repo}
}

// ListPartners 查询伙伴列表
func (s *PartnerService) ListPartners(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Partner, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetPartner 查询伙伴详情
func (s *PartnerService) GetPartner(ctx context.Context, id string) (*entity.Partner, error) {
	return s.repo.FindByID(ctx, id)
}

// CreatePartnerRequest 创建伙伴请求
type CreatePartnerRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required,oneof=factory designer"`
	Region  string `json:"region"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Notes   string `json:"notes"`
}

// CreatePartner 创建伙伴
func (s *PartnerService) CreatePartner(ctx context.Context, req *CreatePartnerRequest, operatorID string) (*entity.Partner, error) {
	partner := &entity.Partner{
		ID:        uuid.New().String()[:32],
		Code:      req.Code,
		Name:      req.Name,
		Type:      req.Type,
		Status:    "active",
		Region:    req.Region,
		Contact:   req.Contact,
		Phone:     req.Phone,
		Email:     req.Email,
		Notes:     req.Notes,
		CreatedBy: operatorID,
	}
	if err := s.repo.Create(ctx, partner); err != nil {
		return nil, fmt.Errorf("创建伙伴失败: %w", err)
	}
	return partner, nil
}

// UpdatePartnerRequest 更新伙伴请求
type UpdatePartnerRequest struct {
	Name    *string `json:"name"`
	Status  *string `json:"status" binding:"omitempty,oneof=active inactive"`
	Region  *string `json:"region"`
	Contact *string `json:"contact"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Notes   *string `json:"notes"`
}

// UpdatePartner 更新伙伴信息
func (s *PartnerService) UpdatePartner(ctx context.Context, id string, req *UpdatePartnerRequest) (*entity.Partner, error) {
	partner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		partner.Name = *req.Name
	}
	if req.Status != nil {
		partner.Status = *req.Status
	}
	if req.Region != nil {
		partner.Region = *req.Region
	}
	if req.Contact != nil {
		partner.Contact = *req.Contact
	}
	if req.Phone != nil {
		partner.Phone = *req.Phone
	}
	if req.Email != nil {
		partner.Email = *req.Email
	}
	if req.Notes != nil {
		partner.Notes = *req.Notes
	}
	if err := s.repo.Update(ctx, partner); err != nil {
		return nil, err
	}
	return partner, nil
}

// DeletePartner 删除伙伴
func (s *PartnerService) DeletePartner(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
