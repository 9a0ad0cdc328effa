package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindAll 查询订单列表
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	var items []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := filters["priority"]; priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if customerID := filters["customer_id"]; customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if partnerID := filters["partner_id"]; partnerID != "" {
		query = query.Where("partner_id = ?", partnerID)
	}
	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("order_no ILIKE ? OR customer_name ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
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

// FindByID 根据ID查找订单
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建订单
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update 更新订单
func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// AppendStatusHistory 追加状态变更记录
func (r *OrderRepository) AppendStatusHistory(ctx context.Context, h *entity.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// FindStatusHistory 查询订单状态变更记录，按时间正序
func (r *OrderRepository) FindStatusHistory(ctx context.Context, orderID string) ([]entity.OrderStatusHistory, error) {
	var items []entity.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// GenerateCode 生成订单编码 ORD-{year}-{4位}
func (r *OrderRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("ORD-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Select("COALESCE(MAX(order_no), '')").
		Where("order_no LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "ORD-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("ORD-%s-%04d", year, seq), nil
}
